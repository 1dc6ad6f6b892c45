package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carbridge/pricer/internal/alerts"
	"carbridge/pricer/internal/checkpoint"
	"carbridge/pricer/internal/common"
	"carbridge/pricer/internal/config"
	"carbridge/pricer/internal/db"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/jobs"
	"carbridge/pricer/internal/logging"
	"carbridge/pricer/internal/lookup"
	"carbridge/pricer/internal/metrics"
	"carbridge/pricer/internal/refdata"
	"carbridge/pricer/internal/routes"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.AppEnv, cfg.Log.OutputFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Pricer starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	// Connect to DB with sqlx
	if err := db.InitPostgres(cfg.Postgres.DSN()); err != nil {
		logging.Error("Failed to connect to Postgres (sqlx)", "error", err.Error())
		log.Fatalf("Failed to connect to Postgres (sqlx): %v", err)
	}
	logging.Info("Connected to Postgres (sqlx)")

	// Connect to DB with GORM
	if _, err := db.InitPostgresORM(cfg.Postgres.DSN()); err != nil {
		logging.Error("Failed to connect to Postgres (GORM)", "error", err.Error())
		log.Fatalf("Failed to connect to Postgres (GORM): %v", err)
	}
	logging.Info("Connected to Postgres (GORM)")

	// Hot cache: Redis when configured, in-process otherwise.
	var cache common.Cache
	if cfg.Redis.Host != "" {
		redisCache, err := common.NewRedisCache(cfg.Redis)
		if err != nil {
			logging.Error("Failed to connect to Redis, falling back to memory cache", "error", err.Error())
			cache = common.NewMemoryCache(6*time.Hour, 10*time.Minute)
		} else {
			logging.Info("Connected to Redis")
			cache = redisCache
		}
	} else {
		cache = common.NewMemoryCache(6*time.Hour, 10*time.Minute)
	}
	defer cache.Close()

	notifier := alerts.NewNotifier(cfg.Alerts.WebhookURL)
	metricsReg := metrics.NewRegistry()

	vehicleRepo := repositories.NewVehicleRepository(db.PgDB)
	catalogRepo := repositories.NewCatalogRepository(db.PgDB, cfg.Pipeline.UpsertChunkSize)
	historyRepo := repositories.NewCycleHistoryRepository(db.PgDB)
	referenceRepo := repositories.NewReferenceRepository(db.PgDB)
	hpRepo := repositories.NewHpLookupRepository(db.PgDB)
	reconRepo := repositories.NewReconRepository(db.DB)

	loader := refdata.NewLoader(referenceRepo, notifier)
	store := checkpoint.NewFileStore(cfg.Pipeline.CheckpointPath)

	// A nil *Resolver must stay a nil interface, or the jobs' nil checks
	// would pass and panic on use.
	var resolver jobs.HpResolver
	if r := buildResolver(cfg, hpRepo, vehicleRepo, cache); r != nil {
		resolver = r
	} else {
		logging.Warn("Horsepower resolution disabled: lookup endpoints not configured")
	}

	recalcJob := jobs.NewRecalcJob(
		vehicleRepo, catalogRepo, historyRepo, loader, resolver, store, metricsReg,
		cfg.Pipeline.BatchSize, cfg.Pipeline.MaxWorkers,
	)
	reconcileJob := jobs.NewReconcileJob(
		reconRepo, vehicleRepo, catalogRepo, historyRepo, loader, resolver, metricsReg,
		cfg.Pipeline.BatchSize, cfg.Pipeline.HpBackfillLimit,
	)

	scheduler := jobs.NewScheduler(
		recalcJob, reconcileJob, reconRepo, store, notifier,
		cfg.Pipeline.FullCycleInterval, cfg.Pipeline.ReconcileInterval,
		cfg.Pipeline.VacuumEveryNCycles,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	logging.Info("Scheduler started",
		"full_cycle_interval", cfg.Pipeline.FullCycleInterval.String(),
		"reconcile_interval", cfg.Pipeline.ReconcileInterval.String(),
	)

	upSince := time.Now()
	router := routes.RegisterRoutes(cfg, metricsReg, scheduler, store, upSince)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "port", cfg.HTTP.Port, "environment", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("HTTP server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP shutdown failed", "error", err.Error())
	}
}

// buildResolver wires the horsepower lookup chain when both external
// endpoints are configured.
func buildResolver(cfg *config.Config, hpRepo *repositories.HpLookupRepository, vehicleRepo *repositories.VehicleRepository, cache common.Cache) *lookup.Resolver {
	if cfg.Lookup.SpecAPIBaseURL == "" || cfg.Lookup.GenAIBaseURL == "" {
		return nil
	}

	pool, err := lookup.NewProxyPool(cfg.Lookup.Proxies, 30*time.Second)
	if err != nil {
		logging.Error("Failed to build proxy pool", "error", err.Error())
		return nil
	}

	specClient := lookup.NewSpecClient(cfg.Lookup.SpecAPIBaseURL, pool, cfg.Lookup.RatePerSecond)
	genaiClient := lookup.NewGenAIClient(cfg.Lookup.GenAIBaseURL, cfg.Lookup.GenAIAPIKey, pool, cfg.Lookup.RatePerSecond)

	return lookup.NewResolver(
		hpRepo, vehicleRepo, cache,
		specClient, genaiClient,
		cfg.Lookup.SiblingTries, cfg.Lookup.TryDelay,
	)
}
