package jobs

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"carbridge/pricer/internal/alerts"
	"carbridge/pricer/internal/db/repositories"
	gormModels "carbridge/pricer/internal/models/gorm"
	"carbridge/pricer/internal/refdata"

	"github.com/jmoiron/sqlx"
)

func newTestReconcile(gdb *gorm.DB, sdb *sqlx.DB) *ReconcileJob {
	loader := refdata.NewLoader(repositories.NewReferenceRepository(gdb), alerts.NewNotifier(""))
	j := NewReconcileJob(
		repositories.NewReconRepository(sdb),
		repositories.NewVehicleRepository(gdb),
		repositories.NewCatalogRepository(gdb, 10),
		repositories.NewCycleHistoryRepository(gdb),
		loader,
		nil,
		nil,
		10, 500,
	)
	j.now = func() time.Time { return fixedNow }
	return j
}

// seedCatalogRow inserts a bare catalog row so drift and orphan queries have
// something to disagree with.
func seedCatalogRow(t *testing.T, db *gorm.DB, id int64, priceKRW int64, hp int) {
	t.Helper()
	row := gormModels.CatalogVehicle{
		ID:           id,
		Manufacturer: "Hyundai",
		Model:        "Sonata",
		Fuel:         "gasoline",
		Transmission: "auto",
		Displacement: 1600,
		Year:         2022,
		Month:        6,
		PriceKRW:     priceKRW,
		Horsepower:   hp,
		AgeCategory:  "mid",
		Pricing:      "{}",
		UpdatedAt:    fixedNow.Add(-time.Hour),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed catalog row %d: %v", id, err)
	}
}

func TestReconcileConvergesIDSets(t *testing.T) {
	gdb, sdb := setupJobsDB(t)
	seedReferenceData(t, gdb)
	seedVehicles(t, gdb, 3) // source ids {1,2,3}

	// Catalog starts at {2,3,4}: 4 is an orphan, 1 is a gap.
	seedCatalogRow(t, gdb, 2, 20_000_000, 0)
	seedCatalogRow(t, gdb, 3, 20_000_000, 0)
	seedCatalogRow(t, gdb, 4, 20_000_000, 0)

	if err := newTestReconcile(gdb, sdb).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ids := catalogIDs(t, gdb)
	if len(ids) != 3 || !ids[1] || !ids[2] || !ids[3] {
		t.Errorf("catalog ids after sweep = %v, want {1,2,3}", ids)
	}
	if ids[4] {
		t.Error("orphan row 4 survived the sweep")
	}
}

func TestReconcileCorrectsPriceDrift(t *testing.T) {
	gdb, sdb := setupJobsDB(t)
	seedReferenceData(t, gdb)
	seedVehicles(t, gdb, 1)

	seedCatalogRow(t, gdb, 1, 15_000_000, 0) // stale price

	if err := newTestReconcile(gdb, sdb).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var row gormModels.CatalogVehicle
	if err := gdb.First(&row, 1).Error; err != nil {
		t.Fatalf("read catalog row: %v", err)
	}
	if row.PriceKRW != 20_000_000 {
		t.Errorf("price after sweep = %d, want 20000000", row.PriceKRW)
	}
	if row.Pricing == "{}" {
		t.Error("drifted row was not recomputed")
	}
	if row.TotalUSDTRUB <= 0 || row.TotalSwiftRUB <= 0 {
		t.Errorf("recomputed totals = %d/%d, want positive", row.TotalUSDTRUB, row.TotalSwiftRUB)
	}
}

func TestReconcileCorrectsHorsepowerDrift(t *testing.T) {
	gdb, sdb := setupJobsDB(t)
	seedReferenceData(t, gdb)
	seedVehicles(t, gdb, 1) // source horsepower NULL, counts as 0

	seedCatalogRow(t, gdb, 1, 20_000_000, 150)

	if err := newTestReconcile(gdb, sdb).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var row gormModels.CatalogVehicle
	if err := gdb.First(&row, 1).Error; err != nil {
		t.Fatalf("read catalog row: %v", err)
	}
	if row.Horsepower != 0 {
		t.Errorf("horsepower after sweep = %d, want 0", row.Horsepower)
	}
}

func TestReconcileBackfillsResolvedHorsepower(t *testing.T) {
	gdb, sdb := setupJobsDB(t)
	seedReferenceData(t, gdb)
	seedVehicles(t, gdb, 1)

	lookup := gormModels.HpLookup{
		Manufacturer: "Hyundai",
		ModelGroup:   "",
		Model:        "Sonata 1",
		Grade:        "",
		Year:         2022,
		Fuel:         "gasoline",
		Transmission: "auto",
		Displacement: 1600,
		Horsepower:   150,
		Status:       gormModels.HpStatusDone,
		Provenance:   gormModels.HpSourceSpecAPI,
	}
	if err := gdb.Create(&lookup).Error; err != nil {
		t.Fatalf("seed lookup: %v", err)
	}

	j := newTestReconcile(gdb, sdb)
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	var src gormModels.SourceVehicle
	if err := gdb.First(&src, 1).Error; err != nil {
		t.Fatalf("read source row: %v", err)
	}
	if src.HorsepowerValue() != 150 {
		t.Fatalf("source horsepower = %d, want 150", src.HorsepowerValue())
	}

	// The next sweep sees the horsepower disagreement and re-prices.
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	var row gormModels.CatalogVehicle
	if err := gdb.First(&row, 1).Error; err != nil {
		t.Fatalf("read catalog row: %v", err)
	}
	if row.Horsepower != 150 {
		t.Errorf("catalog horsepower after second sweep = %d, want 150", row.Horsepower)
	}
	if row.UtilFee <= 0 {
		t.Errorf("utilization fee with known horsepower = %d, want positive", row.UtilFee)
	}
}

func TestReconcileEmptyTablesIsNoOp(t *testing.T) {
	gdb, sdb := setupJobsDB(t)
	seedReferenceData(t, gdb)

	if err := newTestReconcile(gdb, sdb).Run(context.Background()); err != nil {
		t.Fatalf("Run on empty tables: %v", err)
	}
	if got := len(catalogIDs(t, gdb)); got != 0 {
		t.Errorf("catalog rows = %d, want 0", got)
	}
}
