package providers

import (
	"context"
	"errors"
)

// ErrAddressNotFound is returned when a geocoder has no match for an address
var ErrAddressNotFound = errors.New("address not found")

// GeolocationProvider defines the interface for geolocation services
type GeolocationProvider interface {
	// Geocode converts an address to coordinates
	Geocode(ctx context.Context, address string) (*Coordinates, error)
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
