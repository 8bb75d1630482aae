package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MaclennanMah/MediQ/internal/adapters/cache"
	"github.com/MaclennanMah/MediQ/internal/adapters/database"
	"github.com/MaclennanMah/MediQ/internal/adapters/events"
	"github.com/MaclennanMah/MediQ/internal/adapters/providers/geolocation"
	"github.com/MaclennanMah/MediQ/internal/adapters/search"
	"github.com/MaclennanMah/MediQ/internal/api/handlers"
	"github.com/MaclennanMah/MediQ/internal/api/routes"
	"github.com/MaclennanMah/MediQ/internal/application/services"
	"github.com/MaclennanMah/MediQ/internal/domain/providers"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/clients/redis"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/clients/typesense"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/observability"
	"github.com/MaclennanMah/MediQ/internal/infrastructure/storage"
	"github.com/MaclennanMah/MediQ/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("error closing store")
		}
	}()

	// Redis backs the read cache and the cross-instance event bus. Without it
	// the service runs uncached with an in-process bus.
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
		facilityRepo  = stores.Facilities
		cachedRepo    *database.CachedFacilityAdapter
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			eventBus = events.NewRedisEventBus(redisClient)
			cachedRepo = database.NewCachedFacilityAdapter(stores.Facilities, cacheProvider)
			facilityRepo = cachedRepo
		}
	}
	if eventBus == nil {
		eventBus = events.NewMemoryEventBus()
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}()

	var searchRepo repositories.FacilitySearchRepository
	if cfg.Typesense.Enabled {
		typesenseClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("typesense unavailable, proximity search uses the store")
		} else {
			adapter := search.NewTypesenseAdapter(typesenseClient)
			if err := adapter.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to init typesense schema")
			}
			searchRepo = adapter
		}
	}

	facilityService := services.NewFacilityService(facilityRepo, searchRepo, newGeocoder(cfg, cacheProvider), eventBus)
	refresher := services.NewEstimateRefresher(facilityRepo, stores.Submissions, eventBus, cfg.Estimation.WindowSize).
		WithMetrics(metrics)
	submissionService := services.NewSubmissionService(stores.Submissions, facilityRepo, refresher, cfg.Estimation.WindowSize)

	if cachedRepo != nil {
		invalidation := services.NewCacheInvalidationService(cachedRepo, eventBus)
		if err := invalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("failed to start cache invalidation service")
		} else {
			defer invalidation.Stop()
		}
	}

	router := routes.NewRouter(
		handlers.NewOrganizationHandler(facilityService),
		handlers.NewSubmissionHandler(submissionService),
		handlers.NewSSEHandler(eventBus, facilityService),
		routes.Options{
			APIToken:       cfg.Server.APIToken,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			PatientRPS:     cfg.RateLimit.PatientRPS,
			PatientBurst:   cfg.RateLimit.PatientBurst,
			Metrics:        metrics,
		},
	)
	if cfg.Server.APIToken == "" {
		log.Warn().Msg("API_TOKEN is not set; organization writes will be rejected")
	}

	// WriteTimeout stays zero so event streams are not cut off
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("store", cfg.Store.Backend).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newGeocoder(cfg *config.Config, cacheProvider providers.CacheProvider) providers.GeolocationProvider {
	switch cfg.Geolocation.Provider {
	case "nominatim":
		if cfg.Geolocation.BaseURL != "" {
			return geolocation.NewNominatimProviderWithOptions(cfg.Geolocation.UserAgent, cacheProvider, cfg.Geolocation.BaseURL, nil, 1)
		}
		return geolocation.NewNominatimProvider(cfg.Geolocation.UserAgent, cacheProvider)
	case "mock":
		return geolocation.NewMockGeolocationProvider()
	default:
		return nil
	}
}
