package entities

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// FacilityType classifies a healthcare facility
type FacilityType string

const (
	FacilityTypeHospital     FacilityType = "Hospital"
	FacilityTypeWalkInClinic FacilityType = "WalkInClinic"
)

// Valid reports whether t is a recognised facility type
func (t FacilityType) Valid() bool {
	switch t {
	case FacilityTypeHospital, FacilityTypeWalkInClinic:
		return true
	}
	return false
}

// Facility represents a healthcare facility in the system.
// EstimatedWaitMinutes is nil while no submissions exist; only the estimate
// refresher writes it.
type Facility struct {
	ID                   string       `json:"id" db:"id"`
	Name                 string       `json:"name" db:"name"`
	Address              string       `json:"address" db:"address"`
	PhoneNumber          string       `json:"phone_number,omitempty" db:"phone_number"`
	FacilityType         FacilityType `json:"facility_type" db:"facility_type"`
	Location             *Location    `json:"location,omitempty" db:"-"`
	EstimatedWaitMinutes *int         `json:"estimated_wait_minutes" db:"estimated_wait_minutes"`
	EstimateUpdatedAt    *time.Time   `json:"estimate_updated_at,omitempty" db:"estimate_updated_at"`
	CreatedAt            time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at" db:"updated_at"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Valid reports whether the coordinates fall inside the WGS84 ranges
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// ValidID reports whether id has the shape of a record id: a UUID, or the
// 24 hex digit object id kept by records migrated from the document store.
func ValidID(id string) bool {
	if _, err := uuid.Parse(id); err == nil {
		return true
	}
	if len(id) != 24 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
