package document

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
)

// MigrationReport counts what a Migrator run touched
type MigrationReport struct {
	Facilities  int
	Submissions int
	Skipped     int
}

// Migrator rewrites documents written by earlier revisions of the service
// (camelCase fields, ObjectId keys, "user" reporters) into the canonical shape.
type Migrator struct {
	facilities  *mongo.Collection
	submissions *mongo.Collection
	now         func() time.Time
}

// NewMigrator creates a migrator over db
func NewMigrator(db *mongo.Database) *Migrator {
	return &Migrator{
		facilities:  db.Collection(FacilitiesCollection),
		submissions: db.Collection(SubmissionsCollection),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var legacyFilter = bson.M{"schema_version": bson.M{"$exists": false}}

// Run migrates facilities first so that submission facility ids resolve
// against already-rewritten keys. Invalid documents are skipped and counted.
func (m *Migrator) Run(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport

	err := m.each(ctx, m.facilities, func(raw bson.M) error {
		doc, err := legacyFacility(raw, m.now())
		if err != nil {
			report.Skipped++
			log.Warn().Err(err).Interface("legacy_id", raw["_id"]).Msg("skipping legacy facility")
			return nil
		}
		if err := m.replace(ctx, m.facilities, raw["_id"], doc.ID, doc); err != nil {
			return err
		}
		report.Facilities++
		return nil
	})
	if err != nil {
		return report, err
	}

	err = m.each(ctx, m.submissions, func(raw bson.M) error {
		doc, err := legacySubmission(raw)
		if err != nil {
			report.Skipped++
			log.Warn().Err(err).Interface("legacy_id", raw["_id"]).Msg("skipping legacy submission")
			return nil
		}
		if err := m.replace(ctx, m.submissions, raw["_id"], doc.ID, doc); err != nil {
			return err
		}
		report.Submissions++
		return nil
	})
	if err != nil {
		return report, err
	}

	log.Info().
		Int("facilities", report.Facilities).
		Int("submissions", report.Submissions).
		Int("skipped", report.Skipped).
		Msg("legacy migration complete")
	return report, nil
}

func (m *Migrator) each(ctx context.Context, coll *mongo.Collection, fn func(bson.M) error) error {
	cursor, err := coll.Find(ctx, legacyFilter)
	if err != nil {
		return fmt.Errorf("find legacy documents in %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return fmt.Errorf("decode legacy document: %w", err)
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return cursor.Err()
}

// replace writes the canonical document under its string key and drops the
// legacy document when the key type changed.
func (m *Migrator) replace(ctx context.Context, coll *mongo.Collection, oldID interface{}, newID string, doc interface{}) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": newID}, doc, opts); err != nil {
		return fmt.Errorf("write migrated document %s: %w", newID, err)
	}
	if s, ok := oldID.(string); ok && s == newID {
		return nil
	}
	if _, err := coll.DeleteOne(ctx, bson.M{"_id": oldID}); err != nil {
		return fmt.Errorf("remove legacy document %s: %w", newID, err)
	}
	return nil
}

func legacyFacility(raw bson.M, now time.Time) (*facilityDocument, error) {
	id, err := legacyID(raw["_id"])
	if err != nil {
		return nil, err
	}

	name := firstString(raw, "name", "organizationName")
	address := firstString(raw, "address")
	if name == "" || address == "" {
		return nil, fmt.Errorf("facility %s: name and address are required", id)
	}

	doc := &facilityDocument{
		ID:            id,
		Name:          name,
		Address:       address,
		PhoneNumber:   firstString(raw, "phone_number", "phoneNumber"),
		FacilityType:  string(legacyFacilityType(firstString(raw, "facility_type", "organizationType"))),
		Location:      legacyLocation(raw["location"]),
		CreatedAt:     firstTime(raw, now, "created_at", "createdAt"),
		SchemaVersion: schemaVersion,
	}
	doc.UpdatedAt = firstTime(raw, doc.CreatedAt, "updated_at", "updatedAt")

	if v, ok := firstNumber(raw, "estimated_wait_minutes", "estimatedWaitTime"); ok && v >= 0 {
		minutes := int(math.Round(v))
		doc.EstimatedWaitMinutes = &minutes
		at := doc.UpdatedAt
		doc.EstimateUpdatedAt = &at
	}
	return doc, nil
}

func legacySubmission(raw bson.M) (*submissionDocument, error) {
	id, err := legacyID(raw["_id"])
	if err != nil {
		return nil, err
	}

	facilityID := ""
	for _, key := range []string{"facility_id", "organizationId"} {
		if v, ok := raw[key]; ok {
			if facilityID, err = legacyID(v); err != nil {
				return nil, fmt.Errorf("submission %s: %w", id, err)
			}
			break
		}
	}
	if facilityID == "" {
		return nil, fmt.Errorf("submission %s: missing facility reference", id)
	}

	wait, ok := firstNumber(raw, "wait_time_minutes", "waitTime")
	if !ok || wait < 0 || wait > entities.MaxWaitTimeMinutes {
		return nil, fmt.Errorf("submission %s: invalid wait time", id)
	}

	kindValue := firstString(raw, "reporter_kind", "submittedBy")
	if strings.EqualFold(strings.TrimSpace(kindValue), "user") {
		kindValue = string(entities.ReporterKindPatient)
	}
	kind, ok := entities.ParseReporterKind(kindValue)
	if !ok {
		return nil, fmt.Errorf("submission %s: unknown reporter %q", id, kindValue)
	}

	reportedAt := firstTime(raw, time.Time{}, "reported_at", "submissionDateTimeStamp", "submissionDate", "createdAt")
	if reportedAt.IsZero() {
		return nil, fmt.Errorf("submission %s: missing report time", id)
	}

	return &submissionDocument{
		ID:              id,
		FacilityID:      facilityID,
		WaitTimeMinutes: int(math.Round(wait)),
		ReportedAt:      reportedAt,
		ReporterKind:    string(kind),
		SourceAddress:   firstString(raw, "source_address", "ipAddress"),
		SchemaVersion:   schemaVersion,
	}, nil
}

func legacyID(v interface{}) (string, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		if entities.ValidID(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("unusable document id %v", v)
}

func legacyFacilityType(v string) entities.FacilityType {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "hospital":
		return entities.FacilityTypeHospital
	default:
		return entities.FacilityTypeWalkInClinic
	}
}

func legacyLocation(v interface{}) *geoPoint {
	var coords []interface{}
	switch loc := v.(type) {
	case bson.M:
		coords = asSlice(loc["coordinates"])
	case bson.D:
		coords = asSlice(loc.Map()["coordinates"])
	default:
		return nil
	}
	if len(coords) != 2 {
		return nil
	}
	lng, okLng := toFloat(coords[0])
	lat, okLat := toFloat(coords[1])
	if !okLng || !okLat {
		return nil
	}
	point := &entities.Location{Latitude: lat, Longitude: lng}
	if !point.Valid() {
		return nil
	}
	return toGeoPoint(point)
}

func asSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case bson.A:
		return s
	case []interface{}:
		return s
	}
	return nil
}

func firstString(raw bson.M, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstNumber(raw bson.M, keys ...string) (float64, bool) {
	for _, key := range keys {
		if f, ok := toFloat(raw[key]); ok {
			return f, true
		}
	}
	return 0, false
}

func firstTime(raw bson.M, fallback time.Time, keys ...string) time.Time {
	for _, key := range keys {
		switch t := raw[key].(type) {
		case primitive.DateTime:
			return t.Time().UTC()
		case time.Time:
			return t.UTC()
		}
	}
	return fallback
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
