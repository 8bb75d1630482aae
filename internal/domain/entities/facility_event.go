package entities

import (
	"time"

	"github.com/google/uuid"
)

// FacilityEventType represents the type of facility event
type FacilityEventType string

const (
	FacilityEventTypeWaitTimeUpdate FacilityEventType = "wait_time_update"
	FacilityEventTypeDetailsUpdate  FacilityEventType = "details_update"
)

// FacilityEvent represents a real-time update event for a facility
type FacilityEvent struct {
	ID            string                 `json:"id"`
	FacilityID    string                 `json:"facility_id"`
	EventType     FacilityEventType      `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	Location      *Location              `json:"location,omitempty"`
	ChangedFields map[string]interface{} `json:"changed_fields"`
}

// NewFacilityEvent creates a new facility event
func NewFacilityEvent(facilityID string, eventType FacilityEventType, location *Location, changedFields map[string]interface{}) *FacilityEvent {
	return &FacilityEvent{
		ID:            uuid.NewString(),
		FacilityID:    facilityID,
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		Location:      location,
		ChangedFields: changedFields,
	}
}

// NewWaitTimeUpdateEvent builds the event published after an estimate recompute.
// A nil estimate is carried as JSON null.
func NewWaitTimeUpdateEvent(facility *Facility, estimate *int) *FacilityEvent {
	var value interface{}
	if estimate != nil {
		value = *estimate
	}
	return NewFacilityEvent(facility.ID, FacilityEventTypeWaitTimeUpdate, facility.Location, map[string]interface{}{
		"estimated_wait_minutes": value,
	})
}
