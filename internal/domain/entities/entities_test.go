package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("8b6f7f0e-2f7e-4b55-9d1c-4c1f0a3e6a11"))
	assert.True(t, ValidID("65f1c2a9e4b0a1b2c3d4e5f6"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("not-an-id"))
	assert.False(t, ValidID("65f1c2a9e4b0a1b2c3d4e5fz"))
}

func TestParseReporterKind(t *testing.T) {
	kind, ok := ParseReporterKind("Patient")
	assert.True(t, ok)
	assert.Equal(t, ReporterKindPatient, kind)

	kind, ok = ParseReporterKind("organization")
	assert.True(t, ok)
	assert.Equal(t, ReporterKindOrganization, kind)

	_, ok = ParseReporterKind("user")
	assert.False(t, ok)
}

func TestLocationValid(t *testing.T) {
	assert.True(t, Location{Latitude: 90, Longitude: -180}.Valid())
	assert.False(t, Location{Latitude: 90.1, Longitude: 0}.Valid())
	assert.False(t, Location{Latitude: 0, Longitude: 181}.Valid())
}

func TestFacilityTypeValid(t *testing.T) {
	assert.True(t, FacilityTypeHospital.Valid())
	assert.True(t, FacilityTypeWalkInClinic.Valid())
	assert.False(t, FacilityType("Pharmacy").Valid())
}

func TestNewWaitTimeUpdateEvent(t *testing.T) {
	loc := &Location{Latitude: 45.4, Longitude: -75.7}
	v := 20

	ev := NewWaitTimeUpdateEvent(&Facility{ID: "f-1", Location: loc}, &v)
	assert.Equal(t, FacilityEventTypeWaitTimeUpdate, ev.EventType)
	assert.Equal(t, "f-1", ev.FacilityID)
	assert.Equal(t, 20, ev.ChangedFields["estimated_wait_minutes"])
	assert.NotEmpty(t, ev.ID)

	cleared := NewWaitTimeUpdateEvent(&Facility{ID: "f-1"}, nil)
	value, present := cleared.ChangedFields["estimated_wait_minutes"]
	assert.True(t, present)
	assert.Nil(t, value)
}
