package routes

import (
	"net/http"
	"time"

	"carbridge/pricer/internal/api"
	"carbridge/pricer/internal/checkpoint"
	"carbridge/pricer/internal/config"
	"carbridge/pricer/internal/db"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/jobs"
	"carbridge/pricer/internal/logging"
	"carbridge/pricer/internal/metrics"
	"carbridge/pricer/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires the ops surface: health, metrics, pipeline status and
// the JWT-guarded admin triggers.
func RegisterRoutes(
	cfg *config.Config,
	metricsReg *metrics.Registry,
	scheduler *jobs.Scheduler,
	store checkpoint.Store,
	upSince time.Time,
) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	logging.Info("Router initialized with metrics and logging middleware")

	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(db.DB, upSince))
	r.Handle("/metrics", promhttp.Handler())

	history := repositories.NewCycleHistoryRepository(db.PgDB)
	lookups := repositories.NewHpLookupRepository(db.PgDB)

	jobsHandler := api.NewJobsHandler(scheduler, store, history)
	hpHandler := api.NewHpHandler(lookups)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", jobsHandler.Status())

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.HTTP.JWTSecret))

			r.Post("/jobs/recalc", jobsHandler.TriggerFullCycle())
			r.Post("/jobs/reconcile", jobsHandler.TriggerReconcile())
			r.Post("/hp/reopen", hpHandler.ReopenLookup())
		})
	})

	return r
}
