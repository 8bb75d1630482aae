package repositories

import (
	"context"
	"time"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
)

// DefaultNearDistanceMeters is used when a proximity query omits a radius
const DefaultNearDistanceMeters = 10000

// FacilityRepository defines the interface for facility data operations
type FacilityRepository interface {
	// Create creates a new facility
	Create(ctx context.Context, facility *entities.Facility) error

	// GetByID retrieves a facility by ID
	GetByID(ctx context.Context, id string) (*entities.Facility, error)

	// Update updates the descriptive fields of a facility. The cached
	// estimate is left untouched.
	Update(ctx context.Context, facility *entities.Facility) error

	// List retrieves facilities with filters
	List(ctx context.Context, filter FacilityFilter) ([]*entities.Facility, error)

	// FindNear returns facilities with a location within maxDistanceMeters
	// of point, nearest first
	FindNear(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error)

	// SetCachedEstimate overwrites the cached estimate. A nil value clears it.
	SetCachedEstimate(ctx context.Context, id string, value *int, at time.Time) error
}

// FacilitySearchRepository is a secondary proximity index (e.g. Typesense)
type FacilitySearchRepository interface {
	// Near searches the index around a point, nearest first
	Near(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error)

	// Index upserts a facility into the index
	Index(ctx context.Context, facility *entities.Facility) error

	// Delete removes a facility from index
	Delete(ctx context.Context, id string) error
}

// FacilityFilter defines filters for listing facilities
type FacilityFilter struct {
	FacilityType entities.FacilityType
	Limit        int
	Offset       int
}
