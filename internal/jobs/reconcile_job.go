package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"carbridge/pricer/internal/constants"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/logging"
	"carbridge/pricer/internal/metrics"
	gormModels "carbridge/pricer/internal/models/gorm"
	"carbridge/pricer/internal/pricing"
	"carbridge/pricer/internal/refdata"
)

// ReconcileJob converges the catalog toward the source table between full
// cycles: it deletes orphans, backfills missing rows, re-prices drifted
// rows, and copies freshly resolved horsepower values back into source
// rows. Every pass is best-effort; a failing pass is logged and the
// remaining passes still run.
type ReconcileJob struct {
	recon    *repositories.ReconRepository
	vehicles *repositories.VehicleRepository
	catalog  *repositories.CatalogRepository
	history  *repositories.CycleHistoryRepository
	loader   *refdata.Loader
	resolver HpResolver
	metrics  *metrics.Registry

	batchSize       int
	hpBackfillLimit int

	now func() time.Time
}

func NewReconcileJob(
	recon *repositories.ReconRepository,
	vehicles *repositories.VehicleRepository,
	catalog *repositories.CatalogRepository,
	history *repositories.CycleHistoryRepository,
	loader *refdata.Loader,
	resolver HpResolver,
	reg *metrics.Registry,
	batchSize, hpBackfillLimit int,
) *ReconcileJob {
	if batchSize <= 0 {
		batchSize = 200
	}
	if hpBackfillLimit <= 0 {
		hpBackfillLimit = 500
	}
	return &ReconcileJob{
		recon:           recon,
		vehicles:        vehicles,
		catalog:         catalog,
		history:         history,
		loader:          loader,
		resolver:        resolver,
		metrics:         reg,
		batchSize:       batchSize,
		hpBackfillLimit: hpBackfillLimit,
		now:             time.Now,
	}
}

// Run executes one reconciliation sweep. It returns the first error seen so
// callers can observe failures, but all passes are attempted regardless.
func (j *ReconcileJob) Run(ctx context.Context) error {
	log := logging.GetLogger()
	start := j.now()

	orphans, missing, priceDrift, hpDrift, err := j.collectIDs(ctx)
	if err != nil {
		log.Errorw("reconciliation id scan failed", "error", err)
		return err
	}

	var firstErr error
	fail := func(pass string, err error) {
		log.Errorw("reconciliation pass failed", "pass", pass, "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", pass, err)
		}
	}

	if len(orphans) > 0 {
		if err := j.catalog.DeleteByIDs(ctx, orphans); err != nil {
			fail("orphan delete", err)
		} else if j.metrics != nil {
			j.metrics.OrphansDeleted.Add(float64(len(orphans)))
		}
	}

	// Backfill and drift passes all re-run the full compute, so they need a
	// reference snapshot. Loaded at most once per sweep.
	var snap *pricing.Snapshot
	ensureSnapshot := func() (*pricing.Snapshot, error) {
		if snap != nil {
			return snap, nil
		}
		s, err := j.loader.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		snap = s
		return snap, nil
	}

	if n, err := j.recompute(ctx, ensureSnapshot, missing); err != nil {
		fail("gap backfill", err)
	} else if n > 0 {
		j.recordPass(ctx, constants.CycleIDReconcile, n)
		if j.metrics != nil {
			j.metrics.GapsBackfilled.Add(float64(n))
		}
	}

	if n, err := j.recompute(ctx, ensureSnapshot, priceDrift); err != nil {
		fail("price drift", err)
	} else if n > 0 {
		j.recordPass(ctx, constants.CyclePriceDrift, n)
		if j.metrics != nil {
			j.metrics.DriftCorrected.WithLabelValues("price").Add(float64(n))
		}
	}

	if n, err := j.recompute(ctx, ensureSnapshot, hpDrift); err != nil {
		fail("horsepower drift", err)
	} else if n > 0 {
		j.recordPass(ctx, constants.CycleHpDrift, n)
		if j.metrics != nil {
			j.metrics.DriftCorrected.WithLabelValues("horsepower").Add(float64(n))
		}
	}

	if n, err := j.backfillResolvedHp(ctx); err != nil {
		fail("horsepower backfill", err)
	} else if n > 0 {
		j.recordPass(ctx, constants.CycleHpBackfill, n)
	}

	elapsed := j.now().Sub(start)
	if j.metrics != nil {
		j.metrics.CycleDuration.WithLabelValues(constants.CycleIDReconcile).Observe(elapsed.Seconds())
	}
	log.Infow("reconciliation sweep finished",
		"orphans", len(orphans), "missing", len(missing),
		"priceDrift", len(priceDrift), "hpDrift", len(hpDrift),
		"duration", elapsed)
	return firstErr
}

// collectIDs runs the four disagreement queries concurrently.
func (j *ReconcileJob) collectIDs(ctx context.Context) (orphans, missing, priceDrift, hpDrift []int64, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var e error
		orphans, e = j.recon.OrphanCatalogIDs(gctx)
		return e
	})
	g.Go(func() error {
		var e error
		missing, e = j.recon.MissingCatalogIDs(gctx)
		return e
	})
	g.Go(func() error {
		var e error
		priceDrift, e = j.recon.PriceDriftIDs(gctx)
		return e
	})
	g.Go(func() error {
		var e error
		hpDrift, e = j.recon.HpDriftIDs(gctx)
		return e
	})

	err = g.Wait()
	return
}

// recompute re-prices the given source ids and upserts them, in chunks.
func (j *ReconcileJob) recompute(ctx context.Context, ensureSnapshot func() (*pricing.Snapshot, error), ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	snap, err := ensureSnapshot()
	if err != nil {
		return 0, fmt.Errorf("loading reference data: %w", err)
	}

	log := logging.GetLogger()
	processed := 0

	for start := 0; start < len(ids); start += j.batchSize {
		end := start + j.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		vehicles, err := j.vehicles.FindByIDs(ctx, ids[start:end])
		if err != nil {
			return processed, err
		}

		rows := make([]gormModels.CatalogVehicle, 0, len(vehicles))
		asOf := j.now()
		for i := range vehicles {
			v := &vehicles[i]

			if v.HorsepowerValue() == 0 && j.resolver != nil {
				if _, err := j.resolver.Resolve(ctx, v); err != nil {
					log.Warnw("horsepower resolution failed",
						"vehicle", v.ID, "error", err)
				}
			}

			row, err := buildCatalogRow(v, snap, asOf)
			if err != nil {
				return processed, err
			}
			rows = append(rows, *row)
		}

		if err := j.catalog.UpsertBatch(ctx, rows); err != nil {
			return processed, err
		}
		processed += len(rows)
	}
	return processed, nil
}

// backfillResolvedHp copies horsepower values resolved since the last sweep
// into source rows still at zero, bounded per sweep.
func (j *ReconcileJob) backfillResolvedHp(ctx context.Context) (int, error) {
	rows, err := j.recon.ResolvedHpRows(ctx, j.hpBackfillLimit)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, row := range rows {
		if err := j.vehicles.UpdateHorsepower(ctx, row.ID, row.Horsepower); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (j *ReconcileJob) recordPass(ctx context.Context, kind string, processed int) {
	if j.history == nil {
		return
	}
	if _, err := j.history.RecordCycle(ctx, kind, processed, 0, 0, ""); err != nil {
		logging.Warn("recording cycle history failed", "kind", kind, "error", err)
	}
}
