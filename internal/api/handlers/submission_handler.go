package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MaclennanMah/MediQ/internal/api/middleware"
	"github.com/MaclennanMah/MediQ/internal/application/services"
	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/observability"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

// SubmissionService is the part of services.SubmissionService the handlers use
type SubmissionService interface {
	Record(ctx context.Context, in services.RecordInput) (*entities.Submission, error)
	List(ctx context.Context, kind *entities.ReporterKind, limit, offset int) ([]*entities.Submission, error)
	Latest(ctx context.Context, facilityID string, kind entities.ReporterKind) (*entities.Submission, bool, error)
	Recent(ctx context.Context, facilityID string, kind *entities.ReporterKind, limit int) ([]*entities.Submission, error)
}

// SubmissionHandler serves wait-time submissions
type SubmissionHandler struct {
	service SubmissionService
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(service SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

type submissionRequest struct {
	WaitTimeMinutes *int `json:"waitTimeMinutes"`
}

// Submit returns the handler for POST /submissions/{kind}/{facilityId}
func (h *SubmissionHandler) Submit(kind entities.ReporterKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submissionRequest
		if err := decodeJSON(r, &req); err != nil {
			observability.SubmissionsRejectedTotal.WithLabelValues("invalid_body").Inc()
			respondWithAppError(w, r, err)
			return
		}
		if req.WaitTimeMinutes == nil {
			observability.SubmissionsRejectedTotal.WithLabelValues("invalid_body").Inc()
			respondWithError(w, http.StatusBadRequest, "waitTimeMinutes is required")
			return
		}

		submission, err := h.service.Record(r.Context(), services.RecordInput{
			FacilityID:      r.PathValue("facilityId"),
			WaitTimeMinutes: *req.WaitTimeMinutes,
			ReporterKind:    kind,
			SourceAddress:   middleware.ClientIP(r),
		})
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, submission)
	}
}

// ListSubmissions returns the handler for GET /submissions, optionally
// restricted to one reporter kind.
func (h *SubmissionHandler) ListSubmissions(kind *entities.ReporterKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := pagination(r)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}

		submissions, err := h.service.List(r.Context(), kind, limit, offset)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"submissions": submissions,
			"count":       len(submissions),
		})
	}
}

// LatestSubmission handles GET /submissions/latest/{reporterKind}/{facilityId}
func (h *SubmissionHandler) LatestSubmission(w http.ResponseWriter, r *http.Request) {
	kind, ok := entities.ParseReporterKind(r.PathValue("reporterKind"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("unknown reporter kind %q", r.PathValue("reporterKind")))
		return
	}

	facilityID := r.PathValue("facilityId")
	submission, found, err := h.service.Latest(r.Context(), facilityID, kind)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if !found {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("no %s submission for facility %s", kind, facilityID))
		return
	}
	respondWithJSON(w, http.StatusOK, submission)
}

// RecentSubmissions handles GET /submissions/recent/{facilityId}?kind&limit
func (h *SubmissionHandler) RecentSubmissions(w http.ResponseWriter, r *http.Request) {
	var kind *entities.ReporterKind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		parsed, ok := entities.ParseReporterKind(raw)
		if !ok {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("unknown reporter kind %q", raw))
			return
		}
		kind = &parsed
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		respondWithAppError(w, r, apperrors.NewValidationError("limit must be a non-negative integer"))
		return
	}

	submissions, err := h.service.Recent(r.Context(), r.PathValue("facilityId"), kind, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": submissions,
		"count":       len(submissions),
	})
}
