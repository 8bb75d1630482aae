package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/MaclennanMah/MediQ/internal/domain/providers"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, providers.ErrCacheMiss
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(context.Context, ...string) error { return nil }
func (c *mapCache) DeletePattern(context.Context, string) error { return nil }
func (c *mapCache) Exists(context.Context, string) (bool, error) { return false, nil }

func TestNominatimProvider_Geocode(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "MediQ-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "501 Smyth Rd, Ottawa", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`[{"lat":"45.4015","lon":"-75.6497","display_name":"The Ottawa Hospital"}]`))
	}))
	defer srv.Close()

	cache := &mapCache{data: map[string][]byte{}}
	provider := NewNominatimProviderWithOptions("MediQ-test/1.0", cache, srv.URL, srv.Client(), rate.Inf)

	coords, err := provider.Geocode(context.Background(), "501 Smyth Rd, Ottawa")
	require.NoError(t, err)
	assert.InDelta(t, 45.4015, coords.Latitude, 1e-9)
	assert.InDelta(t, -75.6497, coords.Longitude, 1e-9)

	// second lookup is answered from the cache, case-insensitively
	coords, err = provider.Geocode(context.Background(), "  501 SMYTH RD, OTTAWA ")
	require.NoError(t, err)
	assert.InDelta(t, 45.4015, coords.Latitude, 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNominatimProvider_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	provider := NewNominatimProviderWithOptions("", nil, srv.URL, srv.Client(), rate.Inf)

	_, err := provider.Geocode(context.Background(), "nowhere at all")
	assert.ErrorIs(t, err, providers.ErrAddressNotFound)
}

func TestNominatimProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	provider := NewNominatimProviderWithOptions("", nil, srv.URL, srv.Client(), rate.Inf)

	_, err := provider.Geocode(context.Background(), "somewhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNominatimProvider_Throttles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2"}]`))
	}))
	defer srv.Close()

	provider := NewNominatimProviderWithOptions("", nil, srv.URL, srv.Client(), rate.Every(100*time.Millisecond))

	start := time.Now()
	for _, addr := range []string{"a", "b", "c"} {
		_, err := provider.Geocode(context.Background(), addr)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
}

func TestNominatimProvider_EmptyAddress(t *testing.T) {
	provider := NewNominatimProvider("", nil)
	_, err := provider.Geocode(context.Background(), "   ")
	assert.Error(t, err)
}

func TestMockGeolocationProvider(t *testing.T) {
	provider := NewMockGeolocationProvider()

	coords, err := provider.Geocode(context.Background(), "1053 Carling Ave, Ottawa, ON")
	require.NoError(t, err)
	assert.InDelta(t, 45.4215, coords.Latitude, 1e-9)

	_, err = provider.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, providers.ErrAddressNotFound)
}
