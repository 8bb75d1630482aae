package entities

import (
	"strings"
	"time"
)

// ReporterKind identifies who reported a wait time
type ReporterKind string

const (
	ReporterKindOrganization ReporterKind = "organization"
	ReporterKindPatient      ReporterKind = "patient"
)

// MaxWaitTimeMinutes is the largest accepted wait time, one week. It also
// keeps values inside the Postgres INTEGER column.
const MaxWaitTimeMinutes = 7 * 24 * 60

// ParseReporterKind accepts the canonical kinds only
func ParseReporterKind(s string) (ReporterKind, bool) {
	switch ReporterKind(strings.ToLower(strings.TrimSpace(s))) {
	case ReporterKindOrganization:
		return ReporterKindOrganization, true
	case ReporterKindPatient:
		return ReporterKindPatient, true
	}
	return "", false
}

// Submission is a single reported wait time. Submissions are never updated
// or deleted once stored.
type Submission struct {
	ID              string       `json:"id" db:"id"`
	FacilityID      string       `json:"facility_id" db:"facility_id"`
	WaitTimeMinutes int          `json:"wait_time_minutes" db:"wait_time_minutes"`
	ReportedAt      time.Time    `json:"reported_at" db:"reported_at"`
	ReporterKind    ReporterKind `json:"reporter_kind" db:"reporter_kind"`
	SourceAddress   string       `json:"source_address,omitempty" db:"source_address"`
}
