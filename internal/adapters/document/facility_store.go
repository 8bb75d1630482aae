package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

// FacilityStore implements FacilityRepository on MongoDB
type FacilityStore struct {
	coll *mongo.Collection
}

// NewFacilityStore creates a facility store over db
func NewFacilityStore(db *mongo.Database) *FacilityStore {
	return &FacilityStore{coll: db.Collection(FacilitiesCollection)}
}

// Create inserts a facility
func (s *FacilityStore) Create(ctx context.Context, facility *entities.Facility) error {
	if _, err := s.coll.InsertOne(ctx, newFacilityDocument(facility)); err != nil {
		return apperrors.NewDependencyError("failed to create facility", err)
	}
	return nil
}

// GetByID retrieves a facility by ID
func (s *FacilityStore) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	var doc facilityDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to get facility", err)
	}
	return doc.entity(), nil
}

// Update replaces the descriptive fields of a facility
func (s *FacilityStore) Update(ctx context.Context, facility *entities.Facility) error {
	set := bson.M{
		"name":          facility.Name,
		"address":       facility.Address,
		"phone_number":  facility.PhoneNumber,
		"facility_type": string(facility.FacilityType),
		"updated_at":    facility.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if loc := toGeoPoint(facility.Location); loc != nil {
		set["location"] = loc
	} else {
		update["$unset"] = bson.M{"location": ""}
	}

	return s.updateOne(ctx, facility.ID, update, "failed to update facility")
}

// SetCachedEstimate overwrites the cached estimate in a single document update
func (s *FacilityStore) SetCachedEstimate(ctx context.Context, id string, value *int, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{
		"estimated_wait_minutes": value,
		"estimate_updated_at":    at,
	}}, "failed to set cached estimate")
}

// List retrieves facilities with filters
func (s *FacilityStore) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	query := bson.M{}
	if filter.FacilityType != "" {
		query["facility_type"] = string(filter.FacilityType)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to query facilities", err)
	}
	return decodeFacilities(ctx, cursor)
}

// FindNear uses $geoNear over the 2dsphere index; results come back nearest first
func (s *FacilityStore) FindNear(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: bson.A{point.Longitude, point.Latitude}},
			}},
			{Key: "distanceField", Value: "distance_m"},
			{Key: "maxDistance", Value: maxDistanceMeters},
			{Key: "spherical", Value: true},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to query nearby facilities", err)
	}
	return decodeFacilities(ctx, cursor)
}

func (s *FacilityStore) updateOne(ctx context.Context, id string, update interface{}, msg string) error {
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return apperrors.NewDependencyError(msg, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}
	return nil
}

func decodeFacilities(ctx context.Context, cursor *mongo.Cursor) ([]*entities.Facility, error) {
	defer cursor.Close(ctx)

	facilities := make([]*entities.Facility, 0)
	for cursor.Next(ctx) {
		var doc facilityDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, apperrors.NewDependencyError("failed to decode facility", err)
		}
		facilities = append(facilities, doc.entity())
	}
	if err := cursor.Err(); err != nil {
		return nil, apperrors.NewDependencyError("failed to iterate facilities", err)
	}
	return facilities, nil
}

var _ repositories.FacilityRepository = (*FacilityStore)(nil)
