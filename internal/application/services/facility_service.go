package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/providers"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/observability"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

// FacilityInput describes a new facility
type FacilityInput struct {
	Name         string
	Address      string
	PhoneNumber  string
	FacilityType entities.FacilityType
	Location     *entities.Location
}

// FacilityPatch holds the fields an update may change. Nil fields are left
// as they are. The cached estimate cannot be patched.
type FacilityPatch struct {
	Name         *string
	Address      *string
	PhoneNumber  *string
	FacilityType *entities.FacilityType
	Location     *entities.Location
}

// FacilityService handles business logic for facilities
type FacilityService struct {
	repo       repositories.FacilityRepository
	searchRepo repositories.FacilitySearchRepository
	geocoder   providers.GeolocationProvider
	eventBus   providers.EventBus
	now        func() time.Time
}

// NewFacilityService creates a new facility service. searchRepo, geocoder
// and eventBus are optional.
func NewFacilityService(
	repo repositories.FacilityRepository,
	searchRepo repositories.FacilitySearchRepository,
	geocoder providers.GeolocationProvider,
	eventBus providers.EventBus,
) *FacilityService {
	return &FacilityService{
		repo:       repo,
		searchRepo: searchRepo,
		geocoder:   geocoder,
		eventBus:   eventBus,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create validates, stores and indexes a new facility
func (s *FacilityService) Create(ctx context.Context, in FacilityInput) (*entities.Facility, error) {
	now := s.now()
	facility := &entities.Facility{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Address:      strings.TrimSpace(in.Address),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		FacilityType: in.FacilityType,
		Location:     in.Location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validateFacility(facility); err != nil {
		return nil, err
	}

	if facility.Location == nil {
		facility.Location = s.geocode(ctx, facility.Address)
	}

	if err := s.repo.Create(ctx, facility); err != nil {
		return nil, err
	}

	s.index(ctx, facility)
	return facility, nil
}

// Update applies patch to an existing facility
func (s *FacilityService) Update(ctx context.Context, id string, patch FacilityPatch) (*entities.Facility, error) {
	facility, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := map[string]interface{}{}
	if patch.Name != nil {
		facility.Name = strings.TrimSpace(*patch.Name)
		changed["name"] = facility.Name
	}
	if patch.Address != nil {
		facility.Address = strings.TrimSpace(*patch.Address)
		changed["address"] = facility.Address
	}
	if patch.PhoneNumber != nil {
		facility.PhoneNumber = strings.TrimSpace(*patch.PhoneNumber)
		changed["phone_number"] = facility.PhoneNumber
	}
	if patch.FacilityType != nil {
		facility.FacilityType = *patch.FacilityType
		changed["facility_type"] = facility.FacilityType
	}
	if patch.Location != nil {
		facility.Location = patch.Location
		changed["location"] = facility.Location
	}
	if err := validateFacility(facility); err != nil {
		return nil, err
	}
	facility.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, facility); err != nil {
		return nil, err
	}

	s.index(ctx, facility)
	if len(changed) > 0 && s.eventBus != nil {
		event := entities.NewFacilityEvent(facility.ID, entities.FacilityEventTypeDetailsUpdate, facility.Location, changed)
		if err := s.eventBus.Publish(ctx, providers.EventChannelFacilityUpdates, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("facility_id", facility.ID).Msg("failed to publish details update")
		}
	}
	return facility, nil
}

// GetByID retrieves a facility by ID
func (s *FacilityService) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	if !entities.ValidID(id) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}
	return s.repo.GetByID(ctx, id)
}

// List retrieves facilities
func (s *FacilityService) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	if filter.FacilityType != "" && !filter.FacilityType.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown facility type %q", filter.FacilityType))
	}
	return s.repo.List(ctx, filter)
}

// FindNear returns facilities within maxDistanceMeters of point, nearest
// first. Zero selects the default radius. The search index is preferred
// when configured, falling back to the store on error.
func (s *FacilityService) FindNear(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error) {
	if !point.Valid() {
		return nil, apperrors.NewValidationError("lat must be within [-90,90] and lng within [-180,180]")
	}
	if maxDistanceMeters < 0 {
		return nil, apperrors.NewValidationError("max must be a positive number of meters")
	}
	if maxDistanceMeters == 0 {
		maxDistanceMeters = repositories.DefaultNearDistanceMeters
	}

	ctx, span := observability.StartSpan(ctx, "FacilityService.FindNear",
		attribute.Float64("geo.lat", point.Latitude),
		attribute.Float64("geo.lng", point.Longitude),
		attribute.Int("geo.max_meters", maxDistanceMeters),
	)
	defer span.End()

	if s.searchRepo != nil {
		facilities, err := s.nearFromIndex(ctx, point, maxDistanceMeters)
		if err == nil {
			return facilities, nil
		}
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("search index proximity query failed, using store")
	}

	return s.repo.FindNear(ctx, point, maxDistanceMeters)
}

// nearFromIndex reads ordering from the index and current state, including
// the cached estimate, from the store.
func (s *FacilityService) nearFromIndex(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error) {
	hits, err := s.searchRepo.Near(ctx, point, maxDistanceMeters)
	if err != nil {
		return nil, err
	}

	facilities := make([]*entities.Facility, 0, len(hits))
	for _, hit := range hits {
		facility, err := s.repo.GetByID(ctx, hit.ID)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, facility)
	}
	return facilities, nil
}

// ReindexAll pushes every stored facility into the search index
func (s *FacilityService) ReindexAll(ctx context.Context) (int, error) {
	if s.searchRepo == nil {
		return 0, errors.New("search index is not configured")
	}

	indexed := 0
	for offset := 0; ; offset += refreshAllPageSize {
		page, err := s.repo.List(ctx, repositories.FacilityFilter{Limit: refreshAllPageSize, Offset: offset})
		if err != nil {
			return indexed, err
		}
		for _, facility := range page {
			if err := s.searchRepo.Index(ctx, facility); err != nil {
				return indexed, fmt.Errorf("index facility %s: %w", facility.ID, err)
			}
			indexed++
		}
		if len(page) < refreshAllPageSize {
			return indexed, nil
		}
	}
}

func (s *FacilityService) index(ctx context.Context, facility *entities.Facility) {
	if s.searchRepo == nil {
		return
	}
	// the store is authoritative; the index catches up on the next reindex
	if err := s.searchRepo.Index(ctx, facility); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("facility_id", facility.ID).Msg("failed to index facility")
	}
}

func (s *FacilityService) geocode(ctx context.Context, address string) *entities.Location {
	if s.geocoder == nil {
		return nil
	}
	coords, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("address", address).Msg("geocoding failed, storing facility without location")
		return nil
	}
	loc := &entities.Location{Latitude: coords.Latitude, Longitude: coords.Longitude}
	if !loc.Valid() {
		return nil
	}
	return loc
}

func validateFacility(f *entities.Facility) error {
	switch {
	case f.Name == "":
		return apperrors.NewValidationError("name is required")
	case f.Address == "":
		return apperrors.NewValidationError("address is required")
	case f.FacilityType == "":
		return apperrors.NewValidationError("facility_type is required")
	case !f.FacilityType.Valid():
		return apperrors.NewValidationError(fmt.Sprintf("unknown facility_type %q", f.FacilityType))
	case f.Location != nil && !f.Location.Valid():
		return apperrors.NewValidationError("location is out of range")
	}
	return nil
}
