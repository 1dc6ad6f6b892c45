package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all Prometheus metrics for the pricer daemon.
type Registry struct {
	// HTTP metrics (ops/admin surface)
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Pipeline metrics
	CycleDuration     prometheus.HistogramVec
	VehiclesProcessed prometheus.Counter
	VehiclesFailed    prometheus.Counter
	BatchesUpserted   prometheus.Counter
	WorkerThrottle    prometheus.GaugeVec

	// Reconciliation metrics
	OrphansDeleted prometheus.Counter
	GapsBackfilled prometheus.Counter
	DriftCorrected prometheus.CounterVec

	// Lookup metrics
	LookupResults prometheus.CounterVec
}

// NewRegistry initializes and returns a Registry with all metrics registered.
func NewRegistry() *Registry {
	return &Registry{
		HTTPRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricer_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricer_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint", "method"},
		),

		CycleDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricer_cycle_duration_seconds",
				Help:    "Pipeline cycle execution time in seconds by cycle kind",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
			},
			[]string{"cycle"},
		),
		VehiclesProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pricer_vehicles_processed_total",
				Help: "Total vehicles priced and written to the catalog",
			},
		),
		VehiclesFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pricer_vehicles_failed_total",
				Help: "Total vehicles that failed pricing or writing",
			},
		),
		BatchesUpserted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pricer_batches_upserted_total",
				Help: "Total upsert batches written to the catalog table",
			},
		),
		WorkerThrottle: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricer_worker_throttle_seconds",
				Help: "Current self-throttle delay per worker",
			},
			[]string{"worker"},
		),

		OrphansDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pricer_reconcile_orphans_deleted_total",
				Help: "Catalog rows deleted because their source row disappeared",
			},
		),
		GapsBackfilled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pricer_reconcile_gaps_backfilled_total",
				Help: "Catalog rows recomputed because they were missing",
			},
		),
		DriftCorrected: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricer_reconcile_drift_corrected_total",
				Help: "Catalog rows re-synced after field drift, by field",
			},
			[]string{"field"},
		),

		LookupResults: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricer_hp_lookup_results_total",
				Help: "Horsepower lookup outcomes by provenance",
			},
			[]string{"provenance"},
		),
	}
}
