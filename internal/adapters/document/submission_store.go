package document

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

var newestFirst = bson.D{{Key: "reported_at", Value: -1}, {Key: "_id", Value: -1}}

// SubmissionStore implements SubmissionRepository on MongoDB
type SubmissionStore struct {
	coll *mongo.Collection
}

// NewSubmissionStore creates a submission store over db
func NewSubmissionStore(db *mongo.Database) *SubmissionStore {
	return &SubmissionStore{coll: db.Collection(SubmissionsCollection)}
}

// Create inserts a submission
func (s *SubmissionStore) Create(ctx context.Context, submission *entities.Submission) error {
	if _, err := s.coll.InsertOne(ctx, newSubmissionDocument(submission)); err != nil {
		return apperrors.NewDependencyError("failed to create submission", err)
	}
	return nil
}

// Recent returns up to limit submissions for a facility, newest first
func (s *SubmissionStore) Recent(ctx context.Context, facilityID string, kind *entities.ReporterKind, limit int) ([]*entities.Submission, error) {
	query := bson.M{"facility_id": facilityID}
	if kind != nil {
		query["reporter_kind"] = string(*kind)
	}

	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	return s.find(ctx, query, opts)
}

// Latest returns the newest submission of kind for a facility
func (s *SubmissionStore) Latest(ctx context.Context, facilityID string, kind entities.ReporterKind) (*entities.Submission, error) {
	subs, err := s.Recent(ctx, facilityID, &kind, 1)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, repositories.ErrNoSubmission
	}
	return subs[0], nil
}

// List retrieves submissions across facilities, newest first
func (s *SubmissionStore) List(ctx context.Context, filter repositories.SubmissionFilter) ([]*entities.Submission, error) {
	query := bson.M{}
	if filter.ReporterKind != nil {
		query["reporter_kind"] = string(*filter.ReporterKind)
	}

	opts := options.Find().SetSort(newestFirst)
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	return s.find(ctx, query, opts)
}

func (s *SubmissionStore) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*entities.Submission, error) {
	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to query submissions", err)
	}
	defer cursor.Close(ctx)

	submissions := make([]*entities.Submission, 0)
	for cursor.Next(ctx) {
		var doc submissionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, apperrors.NewDependencyError("failed to decode submission", err)
		}
		submissions = append(submissions, doc.entity())
	}
	if err := cursor.Err(); err != nil {
		return nil, apperrors.NewDependencyError("failed to iterate submissions", err)
	}
	return submissions, nil
}

var _ repositories.SubmissionRepository = (*SubmissionStore)(nil)
