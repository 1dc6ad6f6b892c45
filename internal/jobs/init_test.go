package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"carbridge/pricer/internal/alerts"
	"carbridge/pricer/internal/checkpoint"
	"carbridge/pricer/internal/db/repositories"
	gormModels "carbridge/pricer/internal/models/gorm"
)

func TestSchedulerRejectsOverlappingRuns(t *testing.T) {
	gdb, sdb := setupJobsDB(t)
	seedReferenceData(t, gdb)

	store := checkpoint.NewMemoryStore()
	s := NewScheduler(
		newTestRecalc(gdb, store, 10, 1),
		newTestReconcile(gdb, sdb),
		repositories.NewReconRepository(sdb),
		store,
		alerts.NewNotifier(""),
		time.Hour, time.Hour, 1000,
	)

	s.mu.Lock()
	s.fullRunning = true
	s.mu.Unlock()

	if err := s.RunFullCycle(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("overlapping full cycle error = %v, want ErrCycleRunning", err)
	}
	if err := s.RunReconcile(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("reconcile during full cycle error = %v, want ErrCycleRunning", err)
	}
	if !s.FullCycleRunning() {
		t.Error("FullCycleRunning = false while the flag is set")
	}
}

func TestSchedulerFullCycleRunsPostCycleWork(t *testing.T) {
	gdb, sdb := setupJobsDB(t)
	seedReferenceData(t, gdb)
	seedVehicles(t, gdb, 5)

	// A photo row for a vehicle that never makes it into the catalog.
	if err := gdb.Create(&gormModels.CatalogPhoto{VehicleID: 999, URL: "https://img.example/1.jpg"}).Error; err != nil {
		t.Fatalf("seed photo: %v", err)
	}

	store := checkpoint.NewMemoryStore()
	s := NewScheduler(
		newTestRecalc(gdb, store, 10, 2),
		newTestReconcile(gdb, sdb),
		repositories.NewReconRepository(sdb),
		store,
		alerts.NewNotifier(""),
		time.Hour, time.Hour, 1000,
	)

	if err := s.RunFullCycle(context.Background()); err != nil {
		t.Fatalf("RunFullCycle: %v", err)
	}
	if s.FullCycleRunning() {
		t.Error("running flag still set after the cycle")
	}

	if got := len(catalogIDs(t, gdb)); got != 5 {
		t.Errorf("catalog rows = %d, want 5", got)
	}

	var photos int64
	if err := gdb.Model(&gormModels.CatalogPhoto{}).Count(&photos).Error; err != nil {
		t.Fatalf("count photos: %v", err)
	}
	if photos != 0 {
		t.Errorf("orphan photos after cycle = %d, want 0", photos)
	}

	cp, err := store.Load()
	if err != nil {
		t.Fatalf("checkpoint load: %v", err)
	}
	if cp.VacuumCounter != 1 {
		t.Errorf("vacuum counter = %d, want 1", cp.VacuumCounter)
	}
}
