package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus collectors for domain events. Labels are limited to bounded
// enumerations so cardinality stays fixed.
var (
	// SubmissionsTotal counts accepted submissions by reporter kind
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediq_submissions_total",
			Help: "Total number of accepted wait-time submissions.",
		},
		[]string{"reporter_kind"},
	)

	// SubmissionsRejectedTotal counts rejected submissions by reason
	SubmissionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediq_submissions_rejected_total",
			Help: "Total number of rejected wait-time submissions.",
		},
		[]string{"reason"},
	)

	// EstimateRefreshesTotal counts successful estimate recomputes
	EstimateRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mediq_estimate_refreshes_total",
			Help: "Total number of successful cached estimate recomputes.",
		},
	)

	// EstimateRefreshFailuresTotal counts recomputes that failed after the
	// submission itself was stored
	EstimateRefreshFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mediq_estimate_refresh_failures_total",
			Help: "Total number of cached estimate recomputes that failed.",
		},
	)

	// HTTPRequestsTotal counts requests by method, route pattern and status
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediq_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration records request latency in seconds
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediq_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		SubmissionsRejectedTotal,
		EstimateRefreshesTotal,
		EstimateRefreshFailuresTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}
