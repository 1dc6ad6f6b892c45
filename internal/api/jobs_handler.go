package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carbridge/pricer/internal/checkpoint"
	"carbridge/pricer/internal/constants"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/jobs"
	"carbridge/pricer/internal/logging"
)

// JobsHandler exposes manual triggers and progress for the pipeline cycles.
type JobsHandler struct {
	scheduler *jobs.Scheduler
	store     checkpoint.Store
	history   *repositories.CycleHistoryRepository
}

func NewJobsHandler(scheduler *jobs.Scheduler, store checkpoint.Store, history *repositories.CycleHistoryRepository) *JobsHandler {
	return &JobsHandler{
		scheduler: scheduler,
		store:     store,
		history:   history,
	}
}

type triggerResponse struct {
	Cycle       string `json:"cycle"`
	TriggeredAt string `json:"triggered_at"`
}

// TriggerFullCycle starts a full recalculation in the background. A cycle
// already in flight is reported as a conflict, never queued.
func (h *JobsHandler) TriggerFullCycle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.scheduler.FullCycleRunning() {
			respondWithError(w, http.StatusConflict, "full recalculation cycle already running")
			return
		}

		go func() {
			// Detached from the request: the cycle outlives the caller.
			if err := h.scheduler.RunFullCycle(context.Background()); err != nil &&
				!errors.Is(err, jobs.ErrCycleRunning) {
				logging.Error("manually triggered full cycle failed", "error", err)
			}
		}()

		respondWithSuccess(w, http.StatusAccepted, &triggerResponse{
			Cycle:       constants.CycleFullRecalc,
			TriggeredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// TriggerReconcile runs one reconciliation sweep synchronously.
func (h *JobsHandler) TriggerReconcile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h.scheduler.RunReconcile(r.Context())
		if errors.Is(err, jobs.ErrCycleRunning) {
			respondWithError(w, http.StatusConflict, "full recalculation cycle in progress")
			return
		}
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithSuccess(w, http.StatusOK, &triggerResponse{
			Cycle:       constants.CycleIDReconcile,
			TriggeredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

type statusResponse struct {
	FullCycleRunning bool   `json:"full_cycle_running"`
	CurrentOffset    int    `json:"current_offset"`
	ProcessedRows    int64  `json:"processed_rows"`
	TotalRows        int64  `json:"total_rows"`
	VacuumCounter    int    `json:"vacuum_counter"`
	LastFullCycle    string `json:"last_full_cycle,omitempty"`
	LastFullNote     string `json:"last_full_note,omitempty"`
}

// Status reports checkpoint progress and the most recent full cycle.
func (h *JobsHandler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cp, err := h.store.Load()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "reading checkpoint: "+err.Error())
			return
		}

		resp := statusResponse{
			FullCycleRunning: h.scheduler.FullCycleRunning(),
			CurrentOffset:    cp.CurrentOffset,
			ProcessedRows:    cp.ProcessedRows,
			TotalRows:        cp.TotalRows,
			VacuumCounter:    cp.VacuumCounter,
		}

		if last, err := h.history.LastCycle(r.Context(), constants.CycleFullRecalc); err == nil && last != nil {
			resp.LastFullCycle = last.CreatedAt.UTC().Format(time.RFC3339)
			resp.LastFullNote = last.Note
		}

		respondWithSuccess(w, http.StatusOK, &resp)
	}
}
