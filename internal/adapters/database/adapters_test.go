package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/clients/postgres"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewClientFromDB(mockDB), mock
}

var facilityRowColumns = []string{
	"id", "name", "address", "phone_number", "facility_type",
	"latitude", "longitude", "estimated_wait_minutes", "estimate_updated_at",
	"created_at", "updated_at",
}

func TestFacilityAdapter_Create(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "facilities"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Create(context.Background(), &entities.Facility{
		ID:           "8b6f7f0e-2f7e-4b55-9d1c-4c1f0a3e6a11",
		Name:         "Ottawa General",
		Address:      "501 Smyth Rd",
		FacilityType: entities.FacilityTypeHospital,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityAdapter_Create_DriverError(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client)

	mock.ExpectExec(`INSERT INTO "facilities"`).WillReturnError(errors.New("connection reset"))

	err := adapter.Create(context.Background(), &entities.Facility{ID: "x", Name: "n", Address: "a"})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDependency))
}

func TestFacilityAdapter_GetByID_AbsentEstimate(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM "facilities" WHERE \("id" = '0c9d7e8a-0b1c-4d2e-8f3a-1b2c3d4e5f60'\)`).
		WillReturnRows(sqlmock.NewRows(facilityRowColumns).
			AddRow("f-1", "Bruyere Walk-In", "43 Bruyere St", "", "WalkInClinic", nil, nil, nil, nil, now, now))

	facility, err := adapter.GetByID(context.Background(), "0c9d7e8a-0b1c-4d2e-8f3a-1b2c3d4e5f60")

	require.NoError(t, err)
	assert.Equal(t, "Bruyere Walk-In", facility.Name)
	assert.Equal(t, entities.FacilityTypeWalkInClinic, facility.FacilityType)
	assert.Nil(t, facility.Location)
	assert.Nil(t, facility.EstimatedWaitMinutes)
	assert.Nil(t, facility.EstimateUpdatedAt)
}

func TestFacilityAdapter_GetByID_WithEstimate(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM "facilities"`).
		WillReturnRows(sqlmock.NewRows(facilityRowColumns).
			AddRow("5d1f4c3b-9a8e-4f7d-b6c5-a4b3c2d1e0f9", "Civic", "1053 Carling Ave", "613-555-0100", "Hospital", 45.39, -75.72, int64(42), now, now, now))

	facility, err := adapter.GetByID(context.Background(), "5d1f4c3b-9a8e-4f7d-b6c5-a4b3c2d1e0f9")

	require.NoError(t, err)
	require.NotNil(t, facility.Location)
	assert.InDelta(t, 45.39, facility.Location.Latitude, 1e-9)
	require.NotNil(t, facility.EstimatedWaitMinutes)
	assert.Equal(t, 42, *facility.EstimatedWaitMinutes)
}

func TestFacilityAdapter_GetByID_NotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client)

	t.Run("no row", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM "facilities"`).
			WillReturnRows(sqlmock.NewRows(facilityRowColumns))

		_, err := adapter.GetByID(context.Background(), "9e107d9d-372b-4b6a-8f1e-2a3b4c5d6e7f")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("malformed id never reaches the database", func(t *testing.T) {
		_, err := adapter.GetByID(context.Background(), "missing")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityAdapter_SetCachedEstimate(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("writes value", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "facilities" SET .*"estimated_wait_minutes"=20.* WHERE \("id" = 'f-1'\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		v := 20
		require.NoError(t, adapter.SetCachedEstimate(context.Background(), "f-1", &v, at))
	})

	t.Run("clears value", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "facilities" SET .*"estimated_wait_minutes"=NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, adapter.SetCachedEstimate(context.Background(), "f-1", nil, at))
	})

	t.Run("unknown facility", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "facilities"`).WillReturnResult(sqlmock.NewResult(0, 0))

		v := 5
		err := adapter.SetCachedEstimate(context.Background(), "nope", &v, at)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityAdapter_Update_LeavesEstimateAlone(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client)

	mock.ExpectExec(`UPDATE "facilities"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Update(context.Background(), &entities.Facility{
		ID:           "f-1",
		Name:         "Renamed",
		Address:      "1 Main St",
		FacilityType: entities.FacilityTypeHospital,
		UpdatedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityAdapter_FindNear(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM "facilities" WHERE .*"latitude" IS NOT NULL.*ASIN\(SQRT.*<= 5000.*ORDER BY 6371000`).
		WillReturnRows(sqlmock.NewRows(facilityRowColumns).
			AddRow("near", "Near", "1 A St", "", "Hospital", 45.0, -75.0, nil, nil, now, now).
			AddRow("far", "Far", "2 B St", "", "Hospital", 45.01, -75.0, nil, nil, now, now))

	facilities, err := adapter.FindNear(context.Background(), entities.Location{Latitude: 45, Longitude: -75}, 5000)

	require.NoError(t, err)
	require.Len(t, facilities, 2)
	assert.Equal(t, "near", facilities[0].ID)
	assert.Equal(t, "far", facilities[1].ID)
}

var submissionRowColumns = []string{"id", "facility_id", "wait_time_minutes", "reported_at", "reporter_kind", "source_address"}

func TestSubmissionAdapter_Create(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewSubmissionAdapter(client)

	mock.ExpectExec(`INSERT INTO "wait_time_submissions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Create(context.Background(), &entities.Submission{
		ID:              "s-1",
		FacilityID:      "f-1",
		WaitTimeMinutes: 30,
		ReportedAt:      time.Now().UTC(),
		ReporterKind:    entities.ReporterKindPatient,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionAdapter_Recent_OrdersNewestFirst(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewSubmissionAdapter(client)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM "wait_time_submissions" WHERE \("facility_id" = 'f-1'\) ORDER BY "reported_at" DESC, "id" DESC LIMIT 20`).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).
			AddRow("s-2", "f-1", 20, now, "organization", "").
			AddRow("s-1", "f-1", 10, now.Add(-time.Minute), "patient", "10.0.0.1"))

	subs, err := adapter.Recent(context.Background(), "f-1", nil, 20)

	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, entities.ReporterKindOrganization, subs[0].ReporterKind)
	assert.Equal(t, "10.0.0.1", subs[1].SourceAddress)
}

func TestSubmissionAdapter_Latest(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewSubmissionAdapter(client)

	t.Run("none", func(t *testing.T) {
		mock.ExpectQuery(`"reporter_kind" = 'patient'.*LIMIT 1`).
			WillReturnRows(sqlmock.NewRows(submissionRowColumns))

		_, err := adapter.Latest(context.Background(), "f-1", entities.ReporterKindPatient)
		assert.ErrorIs(t, err, repositories.ErrNoSubmission)
	})

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`"reporter_kind" = 'organization'.*LIMIT 1`).
			WillReturnRows(sqlmock.NewRows(submissionRowColumns).
				AddRow("s-9", "f-1", 45, time.Now().UTC(), "organization", ""))

		sub, err := adapter.Latest(context.Background(), "f-1", entities.ReporterKindOrganization)
		require.NoError(t, err)
		assert.Equal(t, 45, sub.WaitTimeMinutes)
	})
}

func TestSubmissionAdapter_List_Paginates(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewSubmissionAdapter(client)

	kind := entities.ReporterKindPatient
	mock.ExpectQuery(`WHERE \("reporter_kind" = 'patient'\) ORDER BY "reported_at" DESC, "id" DESC LIMIT 10 OFFSET 20`).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns))

	subs, err := adapter.List(context.Background(), repositories.SubmissionFilter{ReporterKind: &kind, Limit: 10, Offset: 20})

	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.NotNil(t, subs)
}

func TestSubmissionAdapter_QueryError(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewSubmissionAdapter(client)

	mock.ExpectQuery(`SELECT`).WillReturnError(driver.ErrBadConn)

	_, err := adapter.Recent(context.Background(), "f-1", nil, 20)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDependency))
}
