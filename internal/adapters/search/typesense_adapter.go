package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	tsclient "github.com/MaclennanMah/MediQ/internal/infrastructure/clients/typesense"
)

// maxPerPage is the largest page Typesense serves
const maxPerPage = 250

// TypesenseAdapter implements FacilitySearchRepository over a geopoint index.
// The cached estimate is not indexed; callers hydrate hits from the store.
type TypesenseAdapter struct {
	client *tsclient.Client
}

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema creates the facilities collection when missing
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// Index upserts a facility. Facilities without a location are removed
// from the index instead, since a geopoint field cannot be empty.
func (a *TypesenseAdapter) Index(ctx context.Context, facility *entities.Facility) error {
	if facility.Location == nil {
		return a.Delete(ctx, facility.ID)
	}

	_, err := a.client.Client().Collection(tsclient.FacilitiesCollection).Documents().Upsert(ctx, facilityDocument(facility))
	if err != nil {
		return fmt.Errorf("failed to index facility: %w", err)
	}
	return nil
}

// Delete removes a facility from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.FacilitiesCollection).Document(id).Delete(ctx)
	var httpErr *typesense.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete facility from index: %w", err)
	}
	return nil
}

// Near returns indexed facilities within maxDistanceMeters of point, nearest
// first. Typesense caps a page at maxPerPage hits, so pages are walked until
// a short one comes back.
func (a *TypesenseAdapter) Near(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error) {
	facilities := make([]*entities.Facility, 0)
	for page := 1; ; page++ {
		params := &api.SearchCollectionParams{
			Q:        pointer.String("*"),
			QueryBy:  pointer.String("name"),
			FilterBy: pointer.String(geoFilter(point, maxDistanceMeters)),
			SortBy:   pointer.String(fmt.Sprintf("location(%f, %f):asc", point.Latitude, point.Longitude)),
			Page:     pointer.Int(page),
			PerPage:  pointer.Int(maxPerPage),
		}

		result, err := a.client.Client().Collection(tsclient.FacilitiesCollection).Documents().Search(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to search facilities: %w", err)
		}
		if result.Hits == nil {
			return facilities, nil
		}

		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			if facility, ok := facilityFromDocument(*hit.Document); ok {
				facilities = append(facilities, facility)
			}
		}
		if len(*result.Hits) < maxPerPage {
			return facilities, nil
		}
	}
}

func geoFilter(point entities.Location, maxDistanceMeters int) string {
	return fmt.Sprintf("location:(%f, %f, %.3f km)", point.Latitude, point.Longitude, float64(maxDistanceMeters)/1000)
}

func facilityDocument(f *entities.Facility) map[string]interface{} {
	return map[string]interface{}{
		"id":            f.ID,
		"name":          f.Name,
		"address":       f.Address,
		"phone_number":  f.PhoneNumber,
		"facility_type": string(f.FacilityType),
		"location":      []float64{f.Location.Latitude, f.Location.Longitude},
		"created_at":    f.CreatedAt.Unix(),
		"updated_at":    f.UpdatedAt.Unix(),
	}
}

// facilityFromDocument rebuilds the indexed part of a facility. Typesense
// returns decoded JSON, so numbers arrive as float64.
func facilityFromDocument(doc map[string]interface{}) (*entities.Facility, bool) {
	id, ok := doc["id"].(string)
	if !ok || id == "" {
		return nil, false
	}

	facility := &entities.Facility{ID: id}
	facility.Name, _ = doc["name"].(string)
	facility.Address, _ = doc["address"].(string)
	facility.PhoneNumber, _ = doc["phone_number"].(string)
	if t, ok := doc["facility_type"].(string); ok {
		facility.FacilityType = entities.FacilityType(t)
	}

	if loc, ok := doc["location"].([]interface{}); ok && len(loc) == 2 {
		lat, latOK := loc[0].(float64)
		lng, lngOK := loc[1].(float64)
		if latOK && lngOK {
			facility.Location = &entities.Location{Latitude: lat, Longitude: lng}
		}
	}
	if v, ok := doc["created_at"].(float64); ok {
		facility.CreatedAt = time.Unix(int64(v), 0).UTC()
	}
	if v, ok := doc["updated_at"].(float64); ok {
		facility.UpdatedAt = time.Unix(int64(v), 0).UTC()
	}

	return facility, true
}

var _ repositories.FacilitySearchRepository = (*TypesenseAdapter)(nil)
