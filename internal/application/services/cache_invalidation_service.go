package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/providers"
)

// FacilityCacheInvalidator drops cached copies of a facility
type FacilityCacheInvalidator interface {
	Invalidate(ctx context.Context, facilityID string)
}

// CacheInvalidationService drops cached facility records when another
// process (a second API instance, the backfill command) publishes an update.
type CacheInvalidationService struct {
	invalidator FacilityCacheInvalidator
	eventBus    providers.EventBus
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(invalidator FacilityCacheInvalidator, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		invalidator: invalidator,
		eventBus:    eventBus,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelFacilityUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to facility updates: %w", err)
	}

	go s.processEvents(eventChan)
	log.Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	<-s.done
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.FacilityEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.FacilityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.invalidator.Invalidate(ctx, event.FacilityID)
	log.Debug().
		Str("event_id", event.ID).
		Str("facility_id", event.FacilityID).
		Str("event_type", string(event.EventType)).
		Msg("invalidated cached facility")
}
