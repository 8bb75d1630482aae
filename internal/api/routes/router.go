package routes

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MaclennanMah/MediQ/internal/api/handlers"
	"github.com/MaclennanMah/MediQ/internal/api/middleware"
	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/observability"
)

// Options configures the cross-cutting behaviour of the router
type Options struct {
	APIToken       string
	AllowedOrigins []string
	PatientRPS     float64
	PatientBurst   int
	Metrics        *observability.Metrics
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	organizationHandler *handlers.OrganizationHandler
	submissionHandler   *handlers.SubmissionHandler
	sseHandler          *handlers.SSEHandler

	opts           Options
	patientLimiter *middleware.RateLimiter
}

// NewRouter creates a new router
func NewRouter(
	organizationHandler *handlers.OrganizationHandler,
	submissionHandler *handlers.SubmissionHandler,
	sseHandler *handlers.SSEHandler,
	opts Options,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		organizationHandler: organizationHandler,
		submissionHandler:   submissionHandler,
		sseHandler:          sseHandler,
		opts:                opts,
		patientLimiter:      middleware.NewRateLimiter(opts.PatientRPS, opts.PatientBurst),
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	requireToken := middleware.RequireBearerToken(r.opts.APIToken)
	organization := entities.ReporterKindOrganization
	patient := entities.ReporterKindPatient

	r.mux.HandleFunc("GET /health", r.health)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	// Organizations
	r.mux.HandleFunc("GET /organizations", r.organizationHandler.ListOrganizations)
	r.mux.HandleFunc("GET /organizations/search/near", r.organizationHandler.SearchNear)
	r.mux.HandleFunc("GET /organizations/{id}", r.organizationHandler.GetOrganization)
	r.mux.HandleFunc("GET /organizations/{id}/stream", r.sseHandler.StreamFacilityUpdates)
	r.mux.Handle("POST /organizations", requireToken(http.HandlerFunc(r.organizationHandler.CreateOrganization)))
	r.mux.Handle("PUT /organizations/{id}", requireToken(http.HandlerFunc(r.organizationHandler.UpdateOrganization)))

	// Submissions
	r.mux.Handle("POST /submissions/organization/{facilityId}", r.submissionHandler.Submit(organization))
	r.mux.Handle("POST /submissions/patient/{facilityId}", r.patientLimiter.Handler(r.submissionHandler.Submit(patient)))
	r.mux.Handle("GET /submissions", r.submissionHandler.ListSubmissions(nil))
	r.mux.Handle("GET /submissions/organization", r.submissionHandler.ListSubmissions(&organization))
	r.mux.Handle("GET /submissions/patient", r.submissionHandler.ListSubmissions(&patient))
	r.mux.HandleFunc("GET /submissions/latest/{reporterKind}/{facilityId}", r.submissionHandler.LatestSubmission)
	r.mux.HandleFunc("GET /submissions/recent/{facilityId}", r.submissionHandler.RecentSubmissions)

	var handler http.Handler = r.mux
	handler = middleware.ETag(handler)
	handler = middleware.Compression(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.opts.Metrics)(handler)
	handler = middleware.CORSMiddleware(r.opts.AllowedOrigins)(handler)
	return handler
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"stream_clients": r.sseHandler.ClientCount(),
	})
}
