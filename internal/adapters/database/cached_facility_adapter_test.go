package database

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/providers"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
)

// MockFacilityRepository is a testify mock of the store
type MockFacilityRepository struct {
	mock.Mock
}

func (m *MockFacilityRepository) Create(ctx context.Context, facility *entities.Facility) error {
	return m.Called(ctx, facility).Error(0)
}

func (m *MockFacilityRepository) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) Update(ctx context.Context, facility *entities.Facility) error {
	return m.Called(ctx, facility).Error(0)
}

func (m *MockFacilityRepository) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) FindNear(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error) {
	args := m.Called(ctx, point, maxDistanceMeters)
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) SetCachedEstimate(ctx context.Context, id string, value *int, at time.Time) error {
	return m.Called(ctx, id, value, at).Error(0)
}

// memoryCache is a map-backed CacheProvider
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, providers.ErrCacheMiss
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func TestCachedFacilityAdapter_GetByID_FillsCache(t *testing.T) {
	repo := new(MockFacilityRepository)
	cache := newMemoryCache()
	adapter := NewCachedFacilityAdapter(repo, cache)

	facility := &entities.Facility{ID: "f-1", Name: "Civic", Address: "1053 Carling Ave", FacilityType: entities.FacilityTypeHospital}
	repo.On("GetByID", mock.Anything, "f-1").Return(facility, nil).Once()

	got, err := adapter.GetByID(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Civic", got.Name)

	assert.Eventually(t, func() bool {
		ok, _ := cache.Exists(context.Background(), FacilityCacheKey("f-1"))
		return ok
	}, time.Second, 10*time.Millisecond)

	// served from cache; the repository expectation was Once
	got, err = adapter.GetByID(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Civic", got.Name)
	repo.AssertExpectations(t)
}

func TestCachedFacilityAdapter_GetByID_SkipsFillAfterInvalidate(t *testing.T) {
	repo := new(MockFacilityRepository)
	cache := newMemoryCache()
	adapter := NewCachedFacilityAdapter(repo, cache)
	ctx := context.Background()

	// a write lands between the store read and the cache fill
	stale := &entities.Facility{ID: "f-1", Name: "Civic"}
	repo.On("GetByID", mock.Anything, "f-1").Run(func(mock.Arguments) {
		adapter.Invalidate(ctx, "f-1")
	}).Return(stale, nil).Once()

	got, err := adapter.GetByID(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Civic", got.Name)

	ok, _ := cache.Exists(ctx, FacilityCacheKey("f-1"))
	assert.False(t, ok)
	repo.AssertExpectations(t)
}

// gatedCache holds every Set until release is closed
type gatedCache struct {
	*memoryCache
	entered chan struct{}
	release chan struct{}
	done    chan struct{}
}

func (c *gatedCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	close(c.entered)
	<-c.release
	return c.memoryCache.Set(ctx, key, value, ttl)
}

func (c *gatedCache) Delete(ctx context.Context, keys ...string) error {
	err := c.memoryCache.Delete(ctx, keys...)
	select {
	case <-c.release:
		close(c.done)
	default:
	}
	return err
}

func TestCachedFacilityAdapter_LateFillIsUndone(t *testing.T) {
	repo := new(MockFacilityRepository)
	cache := &gatedCache{
		memoryCache: newMemoryCache(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
		done:        make(chan struct{}),
	}
	adapter := NewCachedFacilityAdapter(repo, cache)
	ctx := context.Background()

	repo.On("GetByID", mock.Anything, "f-1").Return(&entities.Facility{ID: "f-1"}, nil).Once()

	_, err := adapter.GetByID(ctx, "f-1")
	require.NoError(t, err)

	// the invalidation's delete runs while the fill is still in flight
	<-cache.entered
	adapter.Invalidate(ctx, "f-1")
	close(cache.release)

	select {
	case <-cache.done:
	case <-time.After(time.Second):
		t.Fatal("superseded fill was not dropped")
	}
	ok, _ := cache.Exists(ctx, FacilityCacheKey("f-1"))
	assert.False(t, ok)
}

func TestCachedFacilityAdapter_SetCachedEstimate_Invalidates(t *testing.T) {
	repo := new(MockFacilityRepository)
	cache := newMemoryCache()
	adapter := NewCachedFacilityAdapter(repo, cache)
	ctx := context.Background()

	stale, _ := json.Marshal(&entities.Facility{ID: "f-1"})
	require.NoError(t, cache.Set(ctx, FacilityCacheKey("f-1"), stale, 300))
	require.NoError(t, cache.Set(ctx, "facilities:list::0:0", []byte("[]"), 60))
	require.NoError(t, cache.Set(ctx, FacilityCacheKey("f-2"), stale, 300))

	v := 25
	at := time.Now()
	repo.On("SetCachedEstimate", mock.Anything, "f-1", &v, at).Return(nil)

	require.NoError(t, adapter.SetCachedEstimate(ctx, "f-1", &v, at))

	ok, _ := cache.Exists(ctx, FacilityCacheKey("f-1"))
	assert.False(t, ok)
	ok, _ = cache.Exists(ctx, "facilities:list::0:0")
	assert.False(t, ok)
	ok, _ = cache.Exists(ctx, FacilityCacheKey("f-2"))
	assert.True(t, ok)
}

func TestCachedFacilityAdapter_WriteErrorKeepsCache(t *testing.T) {
	repo := new(MockFacilityRepository)
	cache := newMemoryCache()
	adapter := NewCachedFacilityAdapter(repo, cache)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, FacilityCacheKey("f-1"), []byte("{}"), 300))
	repo.On("Update", mock.Anything, mock.Anything).Return(assert.AnError)

	err := adapter.Update(ctx, &entities.Facility{ID: "f-1"})
	assert.ErrorIs(t, err, assert.AnError)

	ok, _ := cache.Exists(ctx, FacilityCacheKey("f-1"))
	assert.True(t, ok)
}

func TestCachedFacilityAdapter_FindNearPassesThrough(t *testing.T) {
	repo := new(MockFacilityRepository)
	adapter := NewCachedFacilityAdapter(repo, newMemoryCache())

	point := entities.Location{Latitude: 45.4, Longitude: -75.7}
	repo.On("FindNear", mock.Anything, point, 10000).Return([]*entities.Facility{{ID: "a"}}, nil).Twice()

	for i := 0; i < 2; i++ {
		got, err := adapter.FindNear(context.Background(), point, 10000)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	repo.AssertExpectations(t)
}
