package repositories

import (
	"context"
	"errors"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
)

// ErrNoSubmission signals that a facility has no submission of the requested kind
var ErrNoSubmission = errors.New("no submission found")

// SubmissionRepository stores wait-time submissions. Submissions are append-only.
type SubmissionRepository interface {
	// Create persists a new submission
	Create(ctx context.Context, submission *entities.Submission) error

	// Recent returns up to limit submissions for a facility, newest first
	// (ties broken by id descending). A nil kind matches every reporter.
	Recent(ctx context.Context, facilityID string, kind *entities.ReporterKind, limit int) ([]*entities.Submission, error)

	// Latest returns the newest submission of kind for a facility or ErrNoSubmission
	Latest(ctx context.Context, facilityID string, kind entities.ReporterKind) (*entities.Submission, error)

	// List retrieves submissions across facilities, newest first
	List(ctx context.Context, filter SubmissionFilter) ([]*entities.Submission, error)
}

// SubmissionFilter defines filters for listing submissions
type SubmissionFilter struct {
	ReporterKind *entities.ReporterKind
	Limit        int
	Offset       int
}
