package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/estimation"
	"github.com/MaclennanMah/MediQ/internal/domain/providers"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/observability"
)

const refreshAllPageSize = 200

// EstimateRefresher keeps a facility's cached estimate equal to the median
// of its most recent submissions.
type EstimateRefresher struct {
	facilities  repositories.FacilityRepository
	submissions repositories.SubmissionRepository
	eventBus    providers.EventBus
	metrics     *observability.Metrics
	window      int
	now         func() time.Time
}

// NewEstimateRefresher creates a refresher. eventBus may be nil.
func NewEstimateRefresher(
	facilities repositories.FacilityRepository,
	submissions repositories.SubmissionRepository,
	eventBus providers.EventBus,
	window int,
) *EstimateRefresher {
	if window <= 0 {
		window = estimation.DefaultWindow
	}
	return &EstimateRefresher{
		facilities:  facilities,
		submissions: submissions,
		eventBus:    eventBus,
		window:      window,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics records refresh durations on m
func (r *EstimateRefresher) WithMetrics(m *observability.Metrics) *EstimateRefresher {
	r.metrics = m
	return r
}

// Refresh recomputes and stores the cached estimate for a facility, then
// publishes a wait_time_update event. Running it twice without new
// submissions leaves the same value.
func (r *EstimateRefresher) Refresh(ctx context.Context, facilityID string) (estimate *int, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "EstimateRefresher.Refresh", attribute.String("facility.id", facilityID))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			observability.RecordError(span, err)
		}
		observability.RecordRefreshMetric(ctx, r.metrics, outcome, time.Since(start))
		span.End()
	}()

	facility, err := r.facilities.GetByID(ctx, facilityID)
	if err != nil {
		return nil, err
	}

	recent, err := r.submissions.Recent(ctx, facilityID, nil, r.window)
	if err != nil {
		return nil, err
	}

	estimate = estimation.FromSubmissions(recent)
	if err := r.facilities.SetCachedEstimate(ctx, facilityID, estimate, r.now()); err != nil {
		return nil, err
	}
	observability.EstimateRefreshesTotal.Inc()

	r.publish(ctx, facility, estimate)
	return estimate, nil
}

func (r *EstimateRefresher) publish(ctx context.Context, facility *entities.Facility, estimate *int) {
	if r.eventBus == nil {
		return
	}

	event := entities.NewWaitTimeUpdateEvent(facility, estimate)
	for _, channel := range []string{providers.GetFacilityChannel(facility.ID), providers.EventChannelFacilityUpdates} {
		if err := r.eventBus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("facility_id", facility.ID).
				Str("channel", channel).
				Msg("failed to publish wait time update")
		}
	}
}

// RefreshAll recomputes every facility's cached estimate. Individual
// failures are logged and reported together once the pass completes.
func (r *EstimateRefresher) RefreshAll(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)
	refreshed, failed := 0, 0

	for offset := 0; ; offset += refreshAllPageSize {
		page, err := r.facilities.List(ctx, repositories.FacilityFilter{Limit: refreshAllPageSize, Offset: offset})
		if err != nil {
			return refreshed, fmt.Errorf("list facilities at offset %d: %w", offset, err)
		}

		for _, facility := range page {
			if err := ctx.Err(); err != nil {
				return refreshed, err
			}
			if _, err := r.Refresh(ctx, facility.ID); err != nil {
				failed++
				logger.Warn().Err(err).Str("facility_id", facility.ID).Msg("estimate refresh failed")
				continue
			}
			refreshed++
		}

		if len(page) < refreshAllPageSize {
			break
		}
	}

	if failed > 0 {
		return refreshed, fmt.Errorf("%d facilities failed to refresh", failed)
	}
	return refreshed, nil
}
