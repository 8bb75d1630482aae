package document

import (
	"time"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
)

// Collection names are shared with earlier revisions so legacy documents
// can be rewritten in place.
const (
	FacilitiesCollection  = "healthcare_organizations"
	SubmissionsCollection = "wait_time_submissions"
)

// schemaVersion marks documents written in the canonical shape. Documents
// without it predate the field rename and are handled by the Migrator.
const schemaVersion = 2

type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

func toGeoPoint(loc *entities.Location) *geoPoint {
	if loc == nil {
		return nil
	}
	// GeoJSON order is longitude, latitude
	return &geoPoint{Type: "Point", Coordinates: []float64{loc.Longitude, loc.Latitude}}
}

func (p *geoPoint) location() *entities.Location {
	if p == nil || len(p.Coordinates) != 2 {
		return nil
	}
	return &entities.Location{Latitude: p.Coordinates[1], Longitude: p.Coordinates[0]}
}

type facilityDocument struct {
	ID                   string     `bson:"_id"`
	Name                 string     `bson:"name"`
	Address              string     `bson:"address"`
	PhoneNumber          string     `bson:"phone_number,omitempty"`
	FacilityType         string     `bson:"facility_type"`
	Location             *geoPoint  `bson:"location,omitempty"`
	EstimatedWaitMinutes *int       `bson:"estimated_wait_minutes"`
	EstimateUpdatedAt    *time.Time `bson:"estimate_updated_at,omitempty"`
	CreatedAt            time.Time  `bson:"created_at"`
	UpdatedAt            time.Time  `bson:"updated_at"`
	SchemaVersion        int        `bson:"schema_version"`
}

func newFacilityDocument(f *entities.Facility) *facilityDocument {
	return &facilityDocument{
		ID:                   f.ID,
		Name:                 f.Name,
		Address:              f.Address,
		PhoneNumber:          f.PhoneNumber,
		FacilityType:         string(f.FacilityType),
		Location:             toGeoPoint(f.Location),
		EstimatedWaitMinutes: f.EstimatedWaitMinutes,
		EstimateUpdatedAt:    f.EstimateUpdatedAt,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
		SchemaVersion:        schemaVersion,
	}
}

func (d *facilityDocument) entity() *entities.Facility {
	return &entities.Facility{
		ID:                   d.ID,
		Name:                 d.Name,
		Address:              d.Address,
		PhoneNumber:          d.PhoneNumber,
		FacilityType:         entities.FacilityType(d.FacilityType),
		Location:             d.Location.location(),
		EstimatedWaitMinutes: d.EstimatedWaitMinutes,
		EstimateUpdatedAt:    d.EstimateUpdatedAt,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

type submissionDocument struct {
	ID              string    `bson:"_id"`
	FacilityID      string    `bson:"facility_id"`
	WaitTimeMinutes int       `bson:"wait_time_minutes"`
	ReportedAt      time.Time `bson:"reported_at"`
	ReporterKind    string    `bson:"reporter_kind"`
	SourceAddress   string    `bson:"source_address,omitempty"`
	SchemaVersion   int       `bson:"schema_version"`
}

func newSubmissionDocument(s *entities.Submission) *submissionDocument {
	return &submissionDocument{
		ID:              s.ID,
		FacilityID:      s.FacilityID,
		WaitTimeMinutes: s.WaitTimeMinutes,
		ReportedAt:      s.ReportedAt,
		ReporterKind:    string(s.ReporterKind),
		SourceAddress:   s.SourceAddress,
		SchemaVersion:   schemaVersion,
	}
}

func (d *submissionDocument) entity() *entities.Submission {
	return &entities.Submission{
		ID:              d.ID,
		FacilityID:      d.FacilityID,
		WaitTimeMinutes: d.WaitTimeMinutes,
		ReportedAt:      d.ReportedAt.UTC(),
		ReporterKind:    entities.ReporterKind(d.ReporterKind),
		SourceAddress:   d.SourceAddress,
	}
}
