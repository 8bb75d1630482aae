package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MaclennanMah/MediQ/internal/adapters/document"
	"github.com/MaclennanMah/MediQ/internal/adapters/search"
	"github.com/MaclennanMah/MediQ/internal/application/services"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/clients/typesense"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/observability"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/storage"
	"github.com/MaclennanMah/MediQ/pkg/config"
)

// backfill upgrades legacy documents, rebuilds the search index and
// recomputes every cached estimate. Recomputing is always safe to repeat.
func main() {
	var migrateLegacy, reindex, skipRefresh bool

	flag.BoolVar(&migrateLegacy, "migrate-legacy", false, "Rewrite legacy MongoDB documents into the current schema")
	flag.BoolVar(&reindex, "reindex", false, "Rebuild the Typesense proximity index")
	flag.BoolVar(&skipRefresh, "skip-refresh", false, "Do not recompute cached estimates")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("mediq-backfill", cfg.Server.Env, cfg.Server.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, migrateLegacy, reindex, !skipRefresh); err != nil {
		log.Fatal().Err(err).Msg("backfill failed")
	}
}

func run(ctx context.Context, cfg *config.Config, migrateLegacy, reindex, refresh bool) error {
	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer stores.Close(context.Background())

	start := time.Now()

	if migrateLegacy {
		if stores.Mongo == nil {
			return fmt.Errorf("-migrate-legacy requires STORE_BACKEND=%s", config.StoreBackendMongo)
		}
		report, err := document.NewMigrator(stores.Mongo).Run(ctx)
		if err != nil {
			return fmt.Errorf("migrate legacy documents: %w", err)
		}
		log.Info().
			Int("facilities", report.Facilities).
			Int("submissions", report.Submissions).
			Int("skipped", report.Skipped).
			Msg("legacy documents migrated")
	}

	if reindex {
		client, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			return err
		}
		index := search.NewTypesenseAdapter(client)
		if err := index.InitSchema(ctx); err != nil {
			return fmt.Errorf("init typesense schema: %w", err)
		}
		count, err := services.NewFacilityService(stores.Facilities, index, nil, nil).ReindexAll(ctx)
		if err != nil {
			return fmt.Errorf("reindex facilities: %w", err)
		}
		log.Info().Int("facilities", count).Msg("search index rebuilt")
	}

	if refresh {
		// no event bus: streams pick up the new values on their next update
		count, err := services.NewEstimateRefresher(stores.Facilities, stores.Submissions, nil, cfg.Estimation.WindowSize).RefreshAll(ctx)
		log.Info().Int("facilities", count).Msg("cached estimates recomputed")
		if err != nil {
			return err
		}
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("backfill complete")
	return nil
}
