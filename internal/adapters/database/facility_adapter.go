package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/clients/postgres"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

const facilitiesTable = "facilities"

var facilityColumns = []interface{}{
	"id", "name", "address", "phone_number", "facility_type",
	"latitude", "longitude", "estimated_wait_minutes", "estimate_updated_at",
	"created_at", "updated_at",
}

// FacilityAdapter implements the FacilityRepository interface
type FacilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewFacilityAdapter creates a new facility adapter
func NewFacilityAdapter(client *postgres.Client) repositories.FacilityRepository {
	return &FacilityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new facility
func (a *FacilityAdapter) Create(ctx context.Context, facility *entities.Facility) error {
	if facility == nil {
		return apperrors.NewInternalError("facility is nil", fmt.Errorf("facility is nil"))
	}

	lat, lng := nullLocation(facility.Location)
	record := goqu.Record{
		"id":                     facility.ID,
		"name":                   facility.Name,
		"address":                facility.Address,
		"phone_number":           facility.PhoneNumber,
		"facility_type":          string(facility.FacilityType),
		"latitude":               lat,
		"longitude":              lng,
		"estimated_wait_minutes": nullInt(facility.EstimatedWaitMinutes),
		"estimate_updated_at":    nullTime(facility.EstimateUpdatedAt),
		"created_at":             facility.CreatedAt,
		"updated_at":             facility.UpdatedAt,
	}

	query, args, err := a.db.Insert(facilitiesTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build facility insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewDependencyError("failed to create facility", err)
	}

	return nil
}

// GetByID retrieves a facility by ID
func (a *FacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	// ids outside the uuid column type cannot exist here
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}

	query, args, err := a.db.From(facilitiesTable).
		Select(facilityColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	facility, err := scanFacility(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to get facility", err)
	}

	return facility, nil
}

// Update updates the descriptive fields of a facility
func (a *FacilityAdapter) Update(ctx context.Context, facility *entities.Facility) error {
	lat, lng := nullLocation(facility.Location)
	query, args, err := a.db.Update(facilitiesTable).
		Set(goqu.Record{
			"name":          facility.Name,
			"address":       facility.Address,
			"phone_number":  facility.PhoneNumber,
			"facility_type": string(facility.FacilityType),
			"latitude":      lat,
			"longitude":     lng,
			"updated_at":    facility.UpdatedAt,
		}).
		Where(goqu.Ex{"id": facility.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execOne(ctx, query, args, facility.ID, "failed to update facility")
}

// SetCachedEstimate overwrites the cached estimate of a facility
func (a *FacilityAdapter) SetCachedEstimate(ctx context.Context, id string, value *int, at time.Time) error {
	query, args, err := a.db.Update(facilitiesTable).
		Set(goqu.Record{
			"estimated_wait_minutes": nullInt(value),
			"estimate_updated_at":    at,
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execOne(ctx, query, args, id, "failed to set cached estimate")
}

// List retrieves facilities with filters
func (a *FacilityAdapter) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	ds := a.db.From(facilitiesTable).Select(facilityColumns...)

	if filter.FacilityType != "" {
		ds = ds.Where(goqu.Ex{"facility_type": string(filter.FacilityType)})
	}

	ds = ds.Order(goqu.I("created_at").Asc(), goqu.I("id").Asc())

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

	return a.queryFacilities(ctx, query, args)
}

// FindNear returns located facilities within maxDistanceMeters of point using
// the haversine great-circle distance, nearest first
func (a *FacilityAdapter) FindNear(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error) {
	distance := haversineMeters(point)

	query, args, err := a.db.From(facilitiesTable).
		Select(facilityColumns...).
		Where(
			goqu.C("latitude").IsNotNull(),
			goqu.C("longitude").IsNotNull(),
			distance.Lte(maxDistanceMeters),
		).
		Order(distance.Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryFacilities(ctx, query, args)
}

func (a *FacilityAdapter) execOne(ctx context.Context, query string, args []interface{}, id, msg string) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewDependencyError(msg, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDependencyError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}

	return nil
}

func (a *FacilityAdapter) queryFacilities(ctx context.Context, query string, args []interface{}) ([]*entities.Facility, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to query facilities", err)
	}
	defer rows.Close()

	facilities := make([]*entities.Facility, 0)
	for rows.Next() {
		facility, err := scanFacility(rows)
		if err != nil {
			return nil, apperrors.NewDependencyError("failed to scan facility", err)
		}
		facilities = append(facilities, facility)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDependencyError("failed to iterate facilities", err)
	}

	return facilities, nil
}

// haversineMeters is the great-circle distance in meters from point to a row's location
func haversineMeters(point entities.Location) exp.LiteralExpression {
	return goqu.L(
		"6371000 * 2 * ASIN(SQRT(POWER(SIN(RADIANS(latitude - ?) / 2), 2) + "+
			"COS(RADIANS(?)) * COS(RADIANS(latitude)) * POWER(SIN(RADIANS(longitude - ?) / 2), 2)))",
		point.Latitude, point.Latitude, point.Longitude,
	)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFacility(row rowScanner) (*entities.Facility, error) {
	var (
		facility     entities.Facility
		facilityType string
		lat, lng     sql.NullFloat64
		estimate     sql.NullInt64
		estimateAt   sql.NullTime
	)

	err := row.Scan(
		&facility.ID,
		&facility.Name,
		&facility.Address,
		&facility.PhoneNumber,
		&facilityType,
		&lat,
		&lng,
		&estimate,
		&estimateAt,
		&facility.CreatedAt,
		&facility.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	facility.FacilityType = entities.FacilityType(facilityType)
	if lat.Valid && lng.Valid {
		facility.Location = &entities.Location{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if estimate.Valid {
		v := int(estimate.Int64)
		facility.EstimatedWaitMinutes = &v
	}
	if estimateAt.Valid {
		t := estimateAt.Time
		facility.EstimateUpdatedAt = &t
	}

	return &facility, nil
}

func nullLocation(loc *entities.Location) (sql.NullFloat64, sql.NullFloat64) {
	if loc == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: loc.Latitude, Valid: true}, sql.NullFloat64{Float64: loc.Longitude, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
