package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/MaclennanMah/MediQ/internal/adapters/document"
	"github.com/MaclennanMah/MediQ/internal/application/services"
	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/observability"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/storage"
	"github.com/MaclennanMah/MediQ/pkg/config"
)

type seedFacility struct {
	input    services.FacilityInput
	org      []int
	patients []int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("mediq-seed", cfg.Server.Env, cfg.Server.LogLevel)

	ctx := context.Background()
	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer stores.Close(ctx)

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, clearing facilities and submissions before seeding")
		if err := reset(ctx, stores); err != nil {
			log.Fatal().Err(err).Msg("failed to reset store")
		}
	}

	facilityService := services.NewFacilityService(stores.Facilities, nil, nil, nil)
	refresher := services.NewEstimateRefresher(stores.Facilities, stores.Submissions, nil, cfg.Estimation.WindowSize)
	submissionService := services.NewSubmissionService(stores.Submissions, stores.Facilities, refresher, cfg.Estimation.WindowSize)

	seeds := []seedFacility{
		{
			input: services.FacilityInput{
				Name: "Toronto General Hospital", Address: "200 Elizabeth St, Toronto, ON", PhoneNumber: "416-340-4800",
				FacilityType: entities.FacilityTypeHospital, Location: &entities.Location{Latitude: 43.6591, Longitude: -79.3877},
			},
			org:      []int{240, 210},
			patients: []int{300, 195, 260},
		},
		{
			input: services.FacilityInput{
				Name: "St. Michael's Hospital", Address: "36 Queen St E, Toronto, ON", PhoneNumber: "416-360-4000",
				FacilityType: entities.FacilityTypeHospital, Location: &entities.Location{Latitude: 43.6533, Longitude: -79.3775},
			},
			org:      []int{180},
			patients: []int{150, 205},
		},
		{
			input: services.FacilityInput{
				Name: "College Street Walk-In Clinic", Address: "455 College St, Toronto, ON",
				FacilityType: entities.FacilityTypeWalkInClinic, Location: &entities.Location{Latitude: 43.6567, Longitude: -79.4078},
			},
			patients: []int{25, 40, 35},
		},
		{
			input: services.FacilityInput{
				Name: "Danforth Family Clinic", Address: "1000 Danforth Ave, Toronto, ON",
				FacilityType: entities.FacilityTypeWalkInClinic, Location: &entities.Location{Latitude: 43.6821, Longitude: -79.3362},
			},
		},
	}

	for _, seed := range seeds {
		facility, err := facilityService.Create(ctx, seed.input)
		if err != nil {
			log.Error().Err(err).Str("name", seed.input.Name).Msg("failed to create facility")
			continue
		}
		record(ctx, submissionService, facility.ID, entities.ReporterKindOrganization, seed.org)
		record(ctx, submissionService, facility.ID, entities.ReporterKindPatient, seed.patients)
	}

	log.Info().Int("facilities", len(seeds)).Msg("seeding completed")
}

func record(ctx context.Context, submissions *services.SubmissionService, facilityID string, kind entities.ReporterKind, waits []int) {
	for _, wait := range waits {
		_, err := submissions.Record(ctx, services.RecordInput{
			FacilityID:      facilityID,
			WaitTimeMinutes: wait,
			ReporterKind:    kind,
			SourceAddress:   "seed",
		})
		if err != nil {
			log.Error().Err(err).Str("facility_id", facilityID).Msg("failed to record submission")
		}
	}
}

func reset(ctx context.Context, stores *storage.Stores) error {
	if stores.SQL != nil {
		_, err := stores.SQL.ExecContext(ctx, `TRUNCATE TABLE wait_time_submissions, facilities`)
		return err
	}
	for _, name := range []string{document.SubmissionsCollection, document.FacilitiesCollection} {
		if err := stores.Mongo.Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return document.EnsureIndexes(ctx, stores.Mongo)
}
