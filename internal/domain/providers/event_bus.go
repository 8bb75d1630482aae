package providers

import (
	"context"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
)

// EventBus fans facility events out to subscribers. Delivery is best effort:
// a slow subscriber may miss events, and readers must treat the facility
// record as the source of truth.
type EventBus interface {
	Publish(ctx context.Context, channel string, event *entities.FacilityEvent) error

	// Subscribe returns a channel that is closed when ctx ends or the bus closes
	Subscribe(ctx context.Context, channel string) (<-chan *entities.FacilityEvent, error)

	// Unsubscribe drops every subscriber of channel
	Unsubscribe(ctx context.Context, channel string) error

	Close() error
}

const (
	// EventChannelFacilityUpdates receives every facility's events; the cache
	// invalidation service listens here
	EventChannelFacilityUpdates = "facility:updates"

	// EventChannelFacilityPrefix prefixes the per-facility channel streamed to clients
	EventChannelFacilityPrefix = "facility:"
)

// GetFacilityChannel returns the per-facility channel, e.g. "facility:<id>"
func GetFacilityChannel(facilityID string) string {
	return EventChannelFacilityPrefix + facilityID
}
