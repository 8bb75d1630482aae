package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MaclennanMah/MediQ/internal/adapters/database"
	"github.com/MaclennanMah/MediQ/internal/adapters/document"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	mongoclient "github.com/MaclennanMah/MediQ/internal/infrastructure/clients/mongo"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/clients/postgres"
	"github.com/MaclennanMah/MediQ/pkg/config"
)

// Stores are the repositories backing the configured store
type Stores struct {
	Facilities  repositories.FacilityRepository
	Submissions repositories.SubmissionRepository

	// SQL and Mongo expose the raw handle of whichever backend is open
	SQL   *sql.DB
	Mongo *mongo.Database

	closers []func(context.Context) error
}

// Open connects to the backend named by cfg.Store.Backend and prepares its
// schema: migrations for Postgres, indexes for MongoDB.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		return openPostgres(cfg)
	case config.StoreBackendMongo:
		return openMongo(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func openPostgres(cfg *config.Config) (*Stores, error) {
	client, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Store.AutoMigrate {
		if err := client.Migrate(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info().Msg("postgres schema is up to date")
	}

	return &Stores{
		Facilities:  database.NewFacilityAdapter(client),
		Submissions: database.NewSubmissionAdapter(client),
		SQL:         client.DB(),
		closers: []func(context.Context) error{
			func(context.Context) error { return client.Close() },
		},
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*Stores, error) {
	client, err := mongoclient.NewClient(&cfg.Mongo)
	if err != nil {
		return nil, err
	}
	db := client.Database()
	if err := document.EnsureIndexes(ctx, db); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}

	return &Stores{
		Facilities:  document.NewFacilityStore(db),
		Submissions: document.NewSubmissionStore(db),
		Mongo:       db,
		closers:     []func(context.Context) error{client.Close},
	}, nil
}

// Close releases every connection opened by Open
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
