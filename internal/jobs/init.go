package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"carbridge/pricer/internal/alerts"
	"carbridge/pricer/internal/checkpoint"
	"carbridge/pricer/internal/constants"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/logging"
)

// ErrCycleRunning is returned when a full cycle is requested while one is
// already in flight.
var ErrCycleRunning = errors.New("full recalculation cycle already running")

const reconcileDeferDelay = 30 * time.Second

// Scheduler owns the two timers of the daemon: the long full-recalculation
// interval and the short reconciliation interval. The full cycle is anchored
// to its previous scheduled start, so a slow cycle does not shift the
// schedule. Reconciliation defers while a full cycle runs.
type Scheduler struct {
	recalc    *RecalcJob
	reconcile *ReconcileJob
	recon     *repositories.ReconRepository
	store     checkpoint.Store
	notifier  *alerts.Notifier

	fullInterval      time.Duration
	reconcileInterval time.Duration
	vacuumEvery       int

	mu          sync.Mutex
	fullRunning bool
}

func NewScheduler(
	recalc *RecalcJob,
	reconcile *ReconcileJob,
	recon *repositories.ReconRepository,
	store checkpoint.Store,
	notifier *alerts.Notifier,
	fullInterval, reconcileInterval time.Duration,
	vacuumEvery int,
) *Scheduler {
	if vacuumEvery <= 0 {
		vacuumEvery = 10
	}
	return &Scheduler{
		recalc:            recalc,
		reconcile:         reconcile,
		recon:             recon,
		store:             store,
		notifier:          notifier,
		fullInterval:      fullInterval,
		reconcileInterval: reconcileInterval,
		vacuumEvery:       vacuumEvery,
	}
}

// Start launches both schedule loops and returns. They stop when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.fullCycleLoop(ctx)
	go s.reconcileLoop(ctx)
}

func (s *Scheduler) fullCycleLoop(ctx context.Context) {
	log := logging.GetLogger()
	scheduled := time.Now()

	for {
		if err := s.RunFullCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("scheduled full cycle failed", "error", err)
		}

		scheduled = scheduled.Add(s.fullInterval)
		wait := time.Until(scheduled)
		if wait < 0 {
			// The cycle overran its slot. Run again immediately and
			// re-anchor instead of burning through the backlog.
			wait = 0
			scheduled = time.Now()
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) reconcileLoop(ctx context.Context) {
	log := logging.GetLogger()
	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for s.FullCycleRunning() {
				select {
				case <-time.After(reconcileDeferDelay):
				case <-ctx.Done():
					return
				}
			}
			if err := s.reconcile.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("scheduled reconciliation failed", "error", err)
				s.alertOnConnExhaustion(ctx, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunFullCycle executes one full recalculation cycle plus its post-cycle
// work: a reconciliation sweep, orphan photo cleanup, and periodic table
// maintenance. Returns ErrCycleRunning when invoked concurrently.
func (s *Scheduler) RunFullCycle(ctx context.Context) error {
	s.mu.Lock()
	if s.fullRunning {
		s.mu.Unlock()
		return ErrCycleRunning
	}
	s.fullRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.fullRunning = false
		s.mu.Unlock()
	}()

	if err := s.recalc.Run(ctx); err != nil {
		s.alertOnConnExhaustion(ctx, err)
		return err
	}

	s.postCycle(ctx)
	return nil
}

// RunReconcile executes one reconciliation sweep on demand. It refuses to
// overlap with a running full cycle.
func (s *Scheduler) RunReconcile(ctx context.Context) error {
	if s.FullCycleRunning() {
		return ErrCycleRunning
	}
	return s.reconcile.Run(ctx)
}

// FullCycleRunning reports whether a full cycle is currently in flight.
func (s *Scheduler) FullCycleRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullRunning
}

func (s *Scheduler) postCycle(ctx context.Context) {
	log := logging.GetLogger()

	if err := s.reconcile.Run(ctx); err != nil {
		log.Errorw("post-cycle reconciliation failed", "error", err)
	}

	if deleted, err := s.recon.CleanupOrphanPhotos(ctx); err != nil {
		log.Errorw("orphan photo cleanup failed", "error", err)
	} else if deleted > 0 {
		log.Infow("orphan photos deleted", "count", deleted)
	}

	cp, err := s.store.Load()
	if err != nil {
		log.Errorw("loading checkpoint for maintenance failed", "error", err)
		return
	}
	cp.VacuumCounter++
	if cp.VacuumCounter >= s.vacuumEvery {
		if err := s.recon.VacuumCatalog(ctx); err != nil {
			log.Errorw("catalog vacuum failed", "error", err)
		} else {
			log.Info("catalog vacuum completed")
			cp.VacuumCounter = 0
		}
	}
	if err := s.store.Save(cp); err != nil {
		log.Errorw("saving checkpoint after maintenance failed", "error", err)
	}
}

// alertOnConnExhaustion fires the connection-pool alert when the database
// starts refusing connections, which usually means another consumer is
// holding the pool.
func (s *Scheduler) alertOnConnExhaustion(ctx context.Context, err error) {
	if s.notifier == nil || err == nil {
		return
	}
	if strings.Contains(strings.ToLower(err.Error()), "too many connections") {
		s.notifier.Notify(ctx, constants.AlertTooManyConnections, err.Error())
	}
}
