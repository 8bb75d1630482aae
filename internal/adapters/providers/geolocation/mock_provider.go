package geolocation

import (
	"context"
	"strings"

	"github.com/MaclennanMah/MediQ/internal/domain/providers"
)

// MockGeolocationProvider resolves a handful of known city names; anything
// else is reported as not found
type MockGeolocationProvider struct{}

// NewMockGeolocationProvider creates a new mock geolocation provider
func NewMockGeolocationProvider() *MockGeolocationProvider {
	return &MockGeolocationProvider{}
}

var mockCoordinates = map[string]providers.Coordinates{
	"ottawa":   {Latitude: 45.4215, Longitude: -75.6972},
	"gatineau": {Latitude: 45.4765, Longitude: -75.7013},
	"kanata":   {Latitude: 45.3088, Longitude: -75.8987},
	"toronto":  {Latitude: 43.6532, Longitude: -79.3832},
	"montreal": {Latitude: 45.5019, Longitude: -73.5674},
}

// Geocode converts an address to coordinates (mock implementation)
func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.Coordinates, error) {
	lower := strings.ToLower(address)
	for city, coords := range mockCoordinates {
		if strings.Contains(lower, city) {
			c := coords
			return &c, nil
		}
	}
	return nil, providers.ErrAddressNotFound
}

var _ providers.GeolocationProvider = (*MockGeolocationProvider)(nil)
