package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/providers"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
)

// CachedFacilityAdapter wraps a FacilityRepository with read-through caching.
// Cache fills happen in the background; invalidation runs before a write
// returns so the next read never serves the previous estimate.
//
// Every invalidation bumps generation. A fill remembers the generation seen
// before its store read and is dropped, or undone, once it has moved on.
type CachedFacilityAdapter struct {
	adapter    repositories.FacilityRepository
	cache      providers.CacheProvider
	generation atomic.Uint64
}

// NewCachedFacilityAdapter creates a new cached facility adapter
func NewCachedFacilityAdapter(adapter repositories.FacilityRepository, cache providers.CacheProvider) *CachedFacilityAdapter {
	return &CachedFacilityAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Cache TTLs (in seconds)
const (
	facilityByIDTTL   = 300
	facilitiesListTTL = 60
)

const facilitiesListPattern = "facilities:list:*"

// FacilityCacheKey is the cache key of a single facility record
func FacilityCacheKey(id string) string {
	return fmt.Sprintf("facility:%s", id)
}

func facilitiesListCacheKey(filter repositories.FacilityFilter) string {
	return fmt.Sprintf("facilities:list:%s:%d:%d", filter.FacilityType, filter.Limit, filter.Offset)
}

// GetByID retrieves a facility by ID with caching
func (a *CachedFacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	cacheKey := FacilityCacheKey(id)
	gen := a.generation.Load()

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var facility entities.Facility
		if err := json.Unmarshal(cached, &facility); err == nil {
			return &facility, nil
		}
		log.Warn().Str("facility_id", id).Msg("discarding undecodable cached facility")
	}

	facility, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.fill(cacheKey, facility, facilityByIDTTL, gen)
	return facility, nil
}

// List retrieves a list of facilities with caching
func (a *CachedFacilityAdapter) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	cacheKey := facilitiesListCacheKey(filter)
	gen := a.generation.Load()

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var facilities []*entities.Facility
		if err := json.Unmarshal(cached, &facilities); err == nil {
			return facilities, nil
		}
		log.Warn().Str("key", cacheKey).Msg("discarding undecodable cached facility list")
	}

	facilities, err := a.adapter.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	a.fill(cacheKey, facilities, facilitiesListTTL, gen)
	return facilities, nil
}

// FindNear is not cached; the key space of arbitrary points is unbounded
func (a *CachedFacilityAdapter) FindNear(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error) {
	return a.adapter.FindNear(ctx, point, maxDistanceMeters)
}

// Create creates a facility and invalidates list caches
func (a *CachedFacilityAdapter) Create(ctx context.Context, facility *entities.Facility) error {
	if err := a.adapter.Create(ctx, facility); err != nil {
		return err
	}

	a.invalidateLists(ctx)
	return nil
}

// Update updates a facility and invalidates its cache
func (a *CachedFacilityAdapter) Update(ctx context.Context, facility *entities.Facility) error {
	if err := a.adapter.Update(ctx, facility); err != nil {
		return err
	}

	a.Invalidate(ctx, facility.ID)
	return nil
}

// SetCachedEstimate writes the estimate and invalidates the facility's cache
func (a *CachedFacilityAdapter) SetCachedEstimate(ctx context.Context, id string, value *int, at time.Time) error {
	if err := a.adapter.SetCachedEstimate(ctx, id, value, at); err != nil {
		return err
	}

	a.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached record of a facility and every cached list.
// Cache errors are logged; the store stays authoritative.
func (a *CachedFacilityAdapter) Invalidate(ctx context.Context, id string) {
	a.generation.Add(1)
	if err := a.cache.Delete(ctx, FacilityCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("facility_id", id).Msg("failed to invalidate facility cache")
	}
	a.invalidateLists(ctx)
}

func (a *CachedFacilityAdapter) invalidateLists(ctx context.Context) {
	a.generation.Add(1)
	if err := a.cache.DeletePattern(ctx, facilitiesListPattern); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate facilities list cache")
	}
}

// fill updates the cache asynchronously to avoid blocking the response.
// gen is the generation loaded before the value was read from the store.
func (a *CachedFacilityAdapter) fill(key string, value interface{}, ttl int, gen uint64) {
	if a.generation.Load() != gen {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.cache.Set(ctx, key, data, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to populate cache")
			return
		}
		// an invalidation may have run its delete before this set landed
		if a.generation.Load() != gen {
			if err := a.cache.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to drop superseded cache fill")
			}
		}
	}()
}
