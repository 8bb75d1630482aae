package database

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/clients/postgres"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

const submissionsTable = "wait_time_submissions"

var submissionColumns = []interface{}{
	"id", "facility_id", "wait_time_minutes", "reported_at", "reporter_kind", "source_address",
}

// SubmissionAdapter implements the SubmissionRepository interface in Postgres
type SubmissionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSubmissionAdapter creates a new submission adapter
func NewSubmissionAdapter(client *postgres.Client) repositories.SubmissionRepository {
	return &SubmissionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a submission
func (a *SubmissionAdapter) Create(ctx context.Context, submission *entities.Submission) error {
	if submission == nil {
		return apperrors.NewInternalError("submission is nil", fmt.Errorf("submission is nil"))
	}

	query, args, err := a.db.Insert(submissionsTable).Rows(goqu.Record{
		"id":                submission.ID,
		"facility_id":       submission.FacilityID,
		"wait_time_minutes": submission.WaitTimeMinutes,
		"reported_at":       submission.ReportedAt,
		"reporter_kind":     string(submission.ReporterKind),
		"source_address":    submission.SourceAddress,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build submission insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewDependencyError("failed to create submission", err)
	}

	return nil
}

// Recent returns up to limit submissions for a facility, newest first
func (a *SubmissionAdapter) Recent(ctx context.Context, facilityID string, kind *entities.ReporterKind, limit int) ([]*entities.Submission, error) {
	ds := a.db.From(submissionsTable).
		Select(submissionColumns...).
		Where(goqu.Ex{"facility_id": facilityID})

	if kind != nil {
		ds = ds.Where(goqu.Ex{"reporter_kind": string(*kind)})
	}

	ds = ds.Order(goqu.I("reported_at").Desc(), goqu.I("id").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.querySubmissions(ctx, query, args)
}

// Latest returns the newest submission of kind for a facility
func (a *SubmissionAdapter) Latest(ctx context.Context, facilityID string, kind entities.ReporterKind) (*entities.Submission, error) {
	subs, err := a.Recent(ctx, facilityID, &kind, 1)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, repositories.ErrNoSubmission
	}
	return subs[0], nil
}

// List retrieves submissions across facilities, newest first
func (a *SubmissionAdapter) List(ctx context.Context, filter repositories.SubmissionFilter) ([]*entities.Submission, error) {
	ds := a.db.From(submissionsTable).Select(submissionColumns...)

	if filter.ReporterKind != nil {
		ds = ds.Where(goqu.Ex{"reporter_kind": string(*filter.ReporterKind)})
	}

	ds = ds.Order(goqu.I("reported_at").Desc(), goqu.I("id").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.querySubmissions(ctx, query, args)
}

func (a *SubmissionAdapter) querySubmissions(ctx context.Context, query string, args []interface{}) ([]*entities.Submission, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to query submissions", err)
	}
	defer rows.Close()

	submissions := make([]*entities.Submission, 0)
	for rows.Next() {
		var (
			s    entities.Submission
			kind string
		)
		if err := rows.Scan(&s.ID, &s.FacilityID, &s.WaitTimeMinutes, &s.ReportedAt, &kind, &s.SourceAddress); err != nil {
			return nil, apperrors.NewDependencyError("failed to scan submission", err)
		}
		s.ReporterKind = entities.ReporterKind(kind)
		submissions = append(submissions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDependencyError("failed to iterate submissions", err)
	}

	return submissions, nil
}
