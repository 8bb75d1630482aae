package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/estimation"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/observability"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

const (
	defaultRefreshTimeout = 5 * time.Second
	maxListLimit          = 500
	defaultListLimit      = 100
)

// Refresher recomputes a facility's cached estimate
type Refresher interface {
	Refresh(ctx context.Context, facilityID string) (*int, error)
}

// RecordInput carries a validated-at-the-boundary submission request
type RecordInput struct {
	FacilityID      string
	WaitTimeMinutes int
	ReporterKind    entities.ReporterKind
	SourceAddress   string
}

// SubmissionService records wait-time submissions and serves submission queries
type SubmissionService struct {
	submissions    repositories.SubmissionRepository
	facilities     repositories.FacilityRepository
	refresher      Refresher
	window         int
	refreshTimeout time.Duration
	now            func() time.Time
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	submissions repositories.SubmissionRepository,
	facilities repositories.FacilityRepository,
	refresher Refresher,
	window int,
) *SubmissionService {
	if window <= 0 {
		window = estimation.DefaultWindow
	}
	return &SubmissionService{
		submissions:    submissions,
		facilities:     facilities,
		refresher:      refresher,
		window:         window,
		refreshTimeout: defaultRefreshTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Record validates and stores a submission, then refreshes the facility's
// cached estimate. A failed refresh never fails the submission.
func (s *SubmissionService) Record(ctx context.Context, in RecordInput) (*entities.Submission, error) {
	if !entities.ValidID(in.FacilityID) {
		observability.SubmissionsRejectedTotal.WithLabelValues("invalid_facility_id").Inc()
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid facility id %q", in.FacilityID))
	}
	if _, ok := entities.ParseReporterKind(string(in.ReporterKind)); !ok {
		observability.SubmissionsRejectedTotal.WithLabelValues("invalid_reporter_kind").Inc()
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown reporter kind %q", in.ReporterKind))
	}
	if in.WaitTimeMinutes < 0 {
		observability.SubmissionsRejectedTotal.WithLabelValues("negative_wait_time").Inc()
		return nil, apperrors.NewValidationError("waitTimeMinutes must be non-negative")
	}
	if in.WaitTimeMinutes > entities.MaxWaitTimeMinutes {
		observability.SubmissionsRejectedTotal.WithLabelValues("wait_time_too_large").Inc()
		return nil, apperrors.NewValidationError(fmt.Sprintf("waitTimeMinutes must be at most %d", entities.MaxWaitTimeMinutes))
	}

	if _, err := s.facilities.GetByID(ctx, in.FacilityID); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			observability.SubmissionsRejectedTotal.WithLabelValues("unknown_facility").Inc()
		}
		return nil, err
	}

	submission := &entities.Submission{
		ID:              uuid.NewString(),
		FacilityID:      in.FacilityID,
		WaitTimeMinutes: in.WaitTimeMinutes,
		ReportedAt:      s.now(),
		ReporterKind:    in.ReporterKind,
		SourceAddress:   in.SourceAddress,
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, err
	}
	observability.SubmissionsTotal.WithLabelValues(string(submission.ReporterKind)).Inc()

	s.refresh(ctx, submission.FacilityID)
	return submission, nil
}

// refresh runs inline but detached from the caller's cancellation so a
// client disconnect cannot leave the estimate stale.
func (s *SubmissionService) refresh(ctx context.Context, facilityID string) {
	if s.refresher == nil {
		return
	}

	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
	defer cancel()

	if _, err := s.refresher.Refresh(refreshCtx, facilityID); err != nil {
		observability.EstimateRefreshFailuresTotal.Inc()
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("facility_id", facilityID).
			Msg("cached estimate refresh failed after submission")
	}
}

// List returns submissions across facilities, newest first
func (s *SubmissionService) List(ctx context.Context, kind *entities.ReporterKind, limit, offset int) ([]*entities.Submission, error) {
	return s.submissions.List(ctx, repositories.SubmissionFilter{
		ReporterKind: kind,
		Limit:        clampLimit(limit, defaultListLimit),
		Offset:       max(offset, 0),
	})
}

// Latest returns the newest submission of kind for a facility. found is
// false when the facility has none, or when the id cannot name a record.
func (s *SubmissionService) Latest(ctx context.Context, facilityID string, kind entities.ReporterKind) (*entities.Submission, bool, error) {
	if !entities.ValidID(facilityID) {
		return nil, false, nil
	}

	submission, err := s.submissions.Latest(ctx, facilityID, kind)
	if errors.Is(err, repositories.ErrNoSubmission) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return submission, true, nil
}

// Recent returns the facility's recent submissions. A non-positive limit
// yields the estimation window.
func (s *SubmissionService) Recent(ctx context.Context, facilityID string, kind *entities.ReporterKind, limit int) ([]*entities.Submission, error) {
	if !entities.ValidID(facilityID) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid facility id %q", facilityID))
	}
	return s.submissions.Recent(ctx, facilityID, kind, clampLimit(limit, s.window))
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxListLimit)
}
