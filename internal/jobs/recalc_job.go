package jobs

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"carbridge/pricer/internal/checkpoint"
	"carbridge/pricer/internal/constants"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/logging"
	"carbridge/pricer/internal/metrics"
	gormModels "carbridge/pricer/internal/models/gorm"
	"carbridge/pricer/internal/pricing"
	"carbridge/pricer/internal/refdata"
)

const maxRecalcWorkers = 4

// HpResolver resolves a vehicle's horsepower, updating the row in place on
// success. The recalc job treats resolution failures as non-fatal: pricing
// proceeds with zero horsepower and the utilization fee stays zero.
type HpResolver interface {
	Resolve(ctx context.Context, v *gormModels.SourceVehicle) (int, error)
}

// RecalcJob reprices the entire source table into the catalog. Workers take
// static contiguous partitions of the table and loop
// fetch -> compute -> upsert -> throttle until their range is exhausted.
type RecalcJob struct {
	vehicles *repositories.VehicleRepository
	catalog  *repositories.CatalogRepository
	history  *repositories.CycleHistoryRepository
	loader   *refdata.Loader
	resolver HpResolver
	store    checkpoint.Store
	metrics  *metrics.Registry

	batchSize  int
	maxWorkers int

	newThrottle func() *Throttle
	now         func() time.Time
	numCPU      func() int
}

func NewRecalcJob(
	vehicles *repositories.VehicleRepository,
	catalog *repositories.CatalogRepository,
	history *repositories.CycleHistoryRepository,
	loader *refdata.Loader,
	resolver HpResolver,
	store checkpoint.Store,
	reg *metrics.Registry,
	batchSize, maxWorkers int,
) *RecalcJob {
	if batchSize <= 0 {
		batchSize = 200
	}
	if maxWorkers <= 0 {
		maxWorkers = maxRecalcWorkers
	}
	return &RecalcJob{
		vehicles:    vehicles,
		catalog:     catalog,
		history:     history,
		loader:      loader,
		resolver:    resolver,
		store:       store,
		metrics:     reg,
		batchSize:   batchSize,
		maxWorkers:  maxWorkers,
		newThrottle: NewThrottle,
		now:         time.Now,
		numCPU:      runtime.NumCPU,
	}
}

// workerResult is each worker's one-shot completion report.
type workerResult struct {
	partition int
	processed int
	err       error
}

// Run executes one full recalculation cycle. Any worker failure fails the
// cycle; rows upserted before the failure remain (the writer is idempotent,
// the next cycle rewrites them identically).
func (j *RecalcJob) Run(ctx context.Context) error {
	start := j.now()
	log := logging.GetLogger()

	snap, err := j.loader.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading reference data: %w", err)
	}

	total64, err := j.vehicles.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting source rows: %w", err)
	}
	total := int(total64)

	cp, err := j.store.Load()
	if err != nil {
		return fmt.Errorf("loading checkpoint: %w", err)
	}
	offset := cp.CurrentOffset
	if offset >= total {
		offset = 0
	}

	remaining := total - offset
	log.Infow("full recalculation cycle starting",
		"total", total, "offset", offset, "remaining", remaining)

	if remaining == 0 {
		return j.complete(ctx, start, cp, total, 0, nil)
	}

	workers := j.workerCount(remaining)
	per := (remaining + workers - 1) / workers

	results := make(chan workerResult, workers)
	for i := 0; i < workers; i++ {
		lo := offset + i*per
		hi := lo + per
		if hi > total {
			hi = total
		}
		go j.runWorker(ctx, i, snap, lo, hi, results)
	}

	processed := 0
	var firstErr error
	done := make([]bool, workers)
	lowWater := 0
	for i := 0; i < workers; i++ {
		res := <-results
		processed += res.processed
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("worker %d: %w", res.partition, res.err)
			}
			continue
		}
		done[res.partition] = true

		// Advance the resume marker to the end of the contiguous prefix of
		// finished partitions. A killed process restarts from here instead
		// of repricing ranges that already completed.
		moved := false
		for lowWater < workers && done[lowWater] {
			lowWater++
			moved = true
		}
		if moved && lowWater < workers {
			mark := offset + lowWater*per
			if mark > total {
				mark = total
			}
			cp.CurrentOffset = mark
			if err := j.store.Save(cp); err != nil {
				log.Errorw("saving checkpoint after partition", "error", err)
			}
		}
	}

	return j.complete(ctx, start, cp, total, processed, firstErr)
}

// complete writes the checkpoint and cycle history once all workers have
// reported. Only the orchestrator touches the checkpoint.
func (j *RecalcJob) complete(ctx context.Context, start time.Time, cp checkpoint.Checkpoint, total, processed int, runErr error) error {
	log := logging.GetLogger()
	elapsed := j.now().Sub(start)

	cp.TotalRows = int64(total)
	cp.ProcessedRows += int64(processed)
	if runErr == nil {
		// Cycle covered the rest of the table; next one starts over.
		cp.CurrentOffset = 0
	}
	if err := j.store.Save(cp); err != nil {
		log.Errorw("saving checkpoint failed", "error", err)
	}

	failed := 0
	note := ""
	if runErr != nil {
		failed = total - processed
		note = runErr.Error()
	}
	if _, err := j.history.RecordCycle(ctx, constants.CycleFullRecalc, processed, failed, elapsed, note); err != nil {
		log.Errorw("recording cycle history failed", "error", err)
	}

	if j.metrics != nil {
		j.metrics.CycleDuration.WithLabelValues(constants.CycleFullRecalc).Observe(elapsed.Seconds())
	}

	if runErr != nil {
		log.Errorw("full recalculation cycle failed",
			"processed", processed, "duration", elapsed, "error", runErr)
		return runErr
	}
	log.Infow("full recalculation cycle finished",
		"processed", processed, "duration", elapsed)
	return nil
}

func (j *RecalcJob) workerCount(remaining int) int {
	n := j.maxWorkers
	if cpus := j.numCPU(); cpus < n {
		n = cpus
	}
	if remaining < n {
		n = remaining
	}
	if n < 1 {
		n = 1
	}
	return n
}

// runWorker processes the half-open partition [lo, hi) in sub-batches. A
// compute or write error aborts the whole partition.
func (j *RecalcJob) runWorker(ctx context.Context, partition int, snap *pricing.Snapshot, lo, hi int, results chan<- workerResult) {
	log := logging.GetLogger()
	throttle := j.newThrottle()
	processed := 0

	for offset := lo; offset < hi; offset += j.batchSize {
		if err := ctx.Err(); err != nil {
			results <- workerResult{partition: partition, processed: processed, err: err}
			return
		}

		limit := j.batchSize
		if offset+limit > hi {
			limit = hi - offset
		}

		page, err := j.vehicles.FetchPage(ctx, offset, limit)
		if err != nil {
			results <- workerResult{partition: partition, processed: processed, err: fmt.Errorf("fetching page at %d: %w", offset, err)}
			return
		}
		if len(page) == 0 {
			break
		}

		rows := make([]gormModels.CatalogVehicle, 0, len(page))
		asOf := j.now()
		for i := range page {
			v := &page[i]

			if v.HorsepowerValue() == 0 && j.resolver != nil {
				if _, err := j.resolver.Resolve(ctx, v); err != nil {
					log.Warnw("horsepower resolution failed",
						"vehicle", v.ID, "error", err)
				}
			}

			row, err := buildCatalogRow(v, snap, asOf)
			if err != nil {
				if j.metrics != nil {
					j.metrics.VehiclesFailed.Inc()
				}
				results <- workerResult{partition: partition, processed: processed, err: err}
				return
			}
			rows = append(rows, *row)
		}

		if err := j.catalog.UpsertBatch(ctx, rows); err != nil {
			results <- workerResult{partition: partition, processed: processed, err: fmt.Errorf("upserting batch at %d: %w", offset, err)}
			return
		}
		processed += len(rows)
		if j.metrics != nil {
			j.metrics.VehiclesProcessed.Add(float64(len(rows)))
			j.metrics.BatchesUpserted.Inc()
		}

		delay := throttle.Adjust()
		if j.metrics != nil {
			j.metrics.WorkerThrottle.WithLabelValues(fmt.Sprint(partition)).Set(delay.Seconds())
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			results <- workerResult{partition: partition, processed: processed, err: ctx.Err()}
			return
		}
	}

	results <- workerResult{partition: partition, processed: processed}
}
