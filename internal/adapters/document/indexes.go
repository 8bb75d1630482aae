package document

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the recency and proximity indexes. Creating an
// existing index is a no-op in MongoDB.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	submissionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "facility_id", Value: 1},
				{Key: "reporter_kind", Value: 1},
				{Key: "reported_at", Value: -1},
			},
			Options: options.Index().SetName("facility_kind_reported_at"),
		},
		{
			Keys: bson.D{
				{Key: "facility_id", Value: 1},
				{Key: "reported_at", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("facility_reported_at"),
		},
	}
	if _, err := db.Collection(SubmissionsCollection).Indexes().CreateMany(ctx, submissionIndexes); err != nil {
		return fmt.Errorf("create submission indexes: %w", err)
	}

	facilityIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
		Options: options.Index().SetName("location_2dsphere"),
	}
	if _, err := db.Collection(FacilitiesCollection).Indexes().CreateOne(ctx, facilityIndex); err != nil {
		return fmt.Errorf("create facility location index: %w", err)
	}

	log.Debug().Msg("document store indexes ensured")
	return nil
}
