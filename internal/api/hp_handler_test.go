package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carbridge/pricer/internal/checkpoint"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/jobs"
	gormModels "carbridge/pricer/internal/models/gorm"
)

func setupAPIDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&gormModels.HpLookup{}, &gormModels.CycleHistory{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func TestReopenLookupFlipsEntryToPending(t *testing.T) {
	db := setupAPIDB(t)
	row := gormModels.HpLookup{
		Manufacturer: "Kia", Model: "K5", Year: 2021,
		Fuel: "gasoline", Transmission: "auto", Displacement: 1999,
		Horsepower: 0, Status: gormModels.HpStatusDone,
		Provenance: gormModels.HpSourceNotFound,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed lookup: %v", err)
	}

	handler := NewHpHandler(repositories.NewHpLookupRepository(db))

	body, _ := json.Marshal(reopenRequest{
		Manufacturer: "Kia", Model: "K5", Year: 2021,
		Fuel: "gasoline", Transmission: "auto", Displacement: 1999,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/hp/reopen", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ReopenLookup()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var updated gormModels.HpLookup
	if err := db.First(&updated, row.ID).Error; err != nil {
		t.Fatalf("reload row: %v", err)
	}
	if updated.Status != gormModels.HpStatusPending {
		t.Errorf("status after reopen = %q, want pending", updated.Status)
	}
	if updated.Provenance != gormModels.HpSourceManual {
		t.Errorf("provenance after reopen = %q, want manual", updated.Provenance)
	}
}

func TestReopenLookupUnknownKeyIs404(t *testing.T) {
	db := setupAPIDB(t)
	handler := NewHpHandler(repositories.NewHpLookupRepository(db))

	body, _ := json.Marshal(reopenRequest{Manufacturer: "Kia", Model: "K5", Year: 2021})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/hp/reopen", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ReopenLookup()(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestReopenLookupRejectsIncompleteKey(t *testing.T) {
	handler := NewHpHandler(nil)

	body, _ := json.Marshal(reopenRequest{Manufacturer: "Kia"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/hp/reopen", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ReopenLookup()(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatusReportsCheckpointProgress(t *testing.T) {
	db := setupAPIDB(t)

	store := checkpoint.NewMemoryStore()
	// Lifetime counters outgrow 32 bits long before the table does.
	if err := store.Save(checkpoint.Checkpoint{CurrentOffset: 400, ProcessedRows: 3_000_000_000, TotalRows: 5_000_000_000, VacuumCounter: 3}); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	scheduler := jobs.NewScheduler(nil, nil, nil, store, nil, time.Hour, time.Hour, 10)
	handler := NewJobsHandler(scheduler, store, repositories.NewCycleHistoryRepository(db))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	handler.Status()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp APIResponse[statusResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data == nil {
		t.Fatal("response data missing")
	}
	if resp.Data.CurrentOffset != 400 || resp.Data.TotalRows != 5_000_000_000 {
		t.Errorf("progress = %d/%d, want 400/5000000000", resp.Data.CurrentOffset, resp.Data.TotalRows)
	}
	if resp.Data.ProcessedRows != 3_000_000_000 {
		t.Errorf("processed rows = %d, want 3000000000", resp.Data.ProcessedRows)
	}
	if resp.Data.FullCycleRunning {
		t.Error("full cycle should not be running")
	}
}
