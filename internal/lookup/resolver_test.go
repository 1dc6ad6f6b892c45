package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"carbridge/pricer/internal/common"
	"carbridge/pricer/internal/db/repositories"
	gormModels "carbridge/pricer/internal/models/gorm"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type mockSpecAPI struct {
	fetchPowerFunc func(ctx context.Context, vehicleID int64) (int, error)
	calls          int
}

func (m *mockSpecAPI) FetchPower(ctx context.Context, vehicleID int64) (int, error) {
	m.calls++
	return m.fetchPowerFunc(ctx, vehicleID)
}

type mockEstimator struct {
	estimateFunc func(ctx context.Context, v *gormModels.SourceVehicle) (int, error)
	calls        int
}

func (m *mockEstimator) EstimatePower(ctx context.Context, v *gormModels.SourceVehicle) (int, error) {
	m.calls++
	return m.estimateFunc(ctx, v)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&gormModels.SourceVehicle{}, &gormModels.HpLookup{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func resolverForTest(t *testing.T, db *gorm.DB, spec *mockSpecAPI, est *mockEstimator) *Resolver {
	t.Helper()
	return NewResolver(
		repositories.NewHpLookupRepository(db),
		repositories.NewVehicleRepository(db),
		common.NewMemoryCache(time.Minute, time.Minute),
		spec, est, 2, 0,
	)
}

func seedVehicle(t *testing.T, db *gorm.DB) *gormModels.SourceVehicle {
	t.Helper()
	v := &gormModels.SourceVehicle{
		ID:           10,
		Manufacturer: "Hyundai",
		ModelGroup:   "Sonata",
		Model:        "Sonata DN8",
		Grade:        "Premium",
		Fuel:         "gasoline",
		Transmission: "auto",
		Displacement: 1999,
		Year:         2022,
		Month:        5,
		PriceKRW:     25_000_000,
	}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return v
}

func TestResolveViaSpecAPIBackfillsSource(t *testing.T) {
	db := setupTestDB(t)
	v := seedVehicle(t, db)

	spec := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) {
		return 180, nil
	}}
	est := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) {
		return 0, nil
	}}

	r := resolverForTest(t, db, spec, est)
	hp, err := r.Resolve(context.Background(), v)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if hp != 180 {
		t.Errorf("hp = %d, want 180", hp)
	}
	if est.calls != 0 {
		t.Error("estimator should not be consulted when the spec API answers")
	}

	// Backfilled onto the source row.
	var got gormModels.SourceVehicle
	if err := db.First(&got, v.ID).Error; err != nil {
		t.Fatalf("reload vehicle: %v", err)
	}
	if got.HorsepowerValue() != 180 {
		t.Errorf("source horsepower = %d, want 180", got.HorsepowerValue())
	}

	// Persisted as a done cache row.
	var row gormModels.HpLookup
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load hp_lookup: %v", err)
	}
	if row.Status != gormModels.HpStatusDone || row.Horsepower != 180 || row.Provenance != gormModels.HpSourceSpecAPI {
		t.Errorf("cache row = %+v", row)
	}
}

func TestResolveFallsBackToEstimator(t *testing.T) {
	db := setupTestDB(t)
	v := seedVehicle(t, db)

	spec := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) {
		return 0, errors.New("service down")
	}}
	est := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) {
		return 165, nil
	}}

	r := resolverForTest(t, db, spec, est)
	hp, err := r.Resolve(context.Background(), v)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if hp != 165 {
		t.Errorf("hp = %d, want 165", hp)
	}

	var row gormModels.HpLookup
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load hp_lookup: %v", err)
	}
	if row.Provenance != gormModels.HpSourceGenAI {
		t.Errorf("provenance = %s, want %s", row.Provenance, gormModels.HpSourceGenAI)
	}
}

func TestNegativeCacheIsSticky(t *testing.T) {
	db := setupTestDB(t)
	v := seedVehicle(t, db)

	spec := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) {
		return 0, nil
	}}
	est := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) {
		return 0, nil
	}}

	r := resolverForTest(t, db, spec, est)

	hp, err := r.Resolve(context.Background(), v)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if hp != 0 {
		t.Fatalf("hp = %d, want 0", hp)
	}

	specCallsAfterFirst := spec.calls
	estCallsAfterFirst := est.calls

	// Second resolution must come from the cache without external calls,
	// even though the cached value is 0.
	hp, err = r.Resolve(context.Background(), v)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if hp != 0 {
		t.Errorf("hp = %d, want 0", hp)
	}
	if spec.calls != specCallsAfterFirst || est.calls != estCallsAfterFirst {
		t.Error("second resolve must not invoke either external service")
	}
}

func TestNegativeCacheSurvivesHotCacheLoss(t *testing.T) {
	db := setupTestDB(t)
	v := seedVehicle(t, db)

	spec := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) { return 0, nil }}
	est := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) { return 0, nil }}

	r := resolverForTest(t, db, spec, est)
	if _, err := r.Resolve(context.Background(), v); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	// A fresh resolver simulates a restarted process with a cold hot-tier:
	// the persistent done row must still short-circuit.
	spec2 := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) { return 0, nil }}
	est2 := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) { return 0, nil }}
	r2 := resolverForTest(t, db, spec2, est2)

	hp, err := r2.Resolve(context.Background(), v)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if hp != 0 {
		t.Errorf("hp = %d, want 0", hp)
	}
	if spec2.calls != 0 || est2.calls != 0 {
		t.Error("persistent negative cache must prevent external calls")
	}
}

func TestSkipPatternShortCircuits(t *testing.T) {
	db := setupTestDB(t)
	v := seedVehicle(t, db)
	v.Manufacturer = "Other Manufacturer"
	if err := db.Save(v).Error; err != nil {
		t.Fatalf("update vehicle: %v", err)
	}

	spec := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) { return 999, nil }}
	est := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) { return 999, nil }}

	r := resolverForTest(t, db, spec, est)
	hp, err := r.Resolve(context.Background(), v)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if hp != 0 {
		t.Errorf("hp = %d, want 0 for a skip-pattern key", hp)
	}
	if spec.calls != 0 || est.calls != 0 {
		t.Error("skip-pattern keys must not reach external services")
	}

	var row gormModels.HpLookup
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load hp_lookup: %v", err)
	}
	if row.Provenance != gormModels.HpSourceSkipped {
		t.Errorf("provenance = %s, want %s", row.Provenance, gormModels.HpSourceSkipped)
	}
}

func TestSpecAPITriesSiblings(t *testing.T) {
	db := setupTestDB(t)
	v := seedVehicle(t, db)

	// A sibling sharing the composite key.
	sibling := *v
	sibling.ID = 11
	if err := db.Create(&sibling).Error; err != nil {
		t.Fatalf("seed sibling: %v", err)
	}

	var tried []int64
	spec := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) {
		tried = append(tried, id)
		if len(tried) == 1 {
			return 0, nil // first sibling has no data
		}
		return 172, nil
	}}
	est := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) { return 0, nil }}

	r := resolverForTest(t, db, spec, est)
	hp, err := r.Resolve(context.Background(), v)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if hp != 172 {
		t.Errorf("hp = %d, want 172 from the second sibling", hp)
	}
	if len(tried) != 2 {
		t.Errorf("tried %d siblings, want 2", len(tried))
	}
}

func TestSiblingsStayWithinModelGroup(t *testing.T) {
	db := setupTestDB(t)
	v := seedVehicle(t, db)

	// Same trim everywhere except the model group.
	foreign := *v
	foreign.ID = 12
	foreign.ModelGroup = "Grandeur"
	if err := db.Create(&foreign).Error; err != nil {
		t.Fatalf("seed foreign vehicle: %v", err)
	}

	var tried []int64
	spec := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) {
		tried = append(tried, id)
		return 0, nil
	}}
	est := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) { return 0, nil }}

	r := resolverForTest(t, db, spec, est)
	if _, err := r.Resolve(context.Background(), v); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for _, id := range tried {
		if id == foreign.ID {
			t.Errorf("vehicle %d from another model group was tried as a sibling", foreign.ID)
		}
	}
	if len(tried) != 1 {
		t.Errorf("tried %d vehicles, want 1", len(tried))
	}
}

func TestReopenAllowsNewLookup(t *testing.T) {
	db := setupTestDB(t)
	v := seedVehicle(t, db)

	spec := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) { return 0, nil }}
	est := &mockEstimator{estimateFunc: func(ctx context.Context, v *gormModels.SourceVehicle) (int, error) { return 0, nil }}
	r := resolverForTest(t, db, spec, est)

	if _, err := r.Resolve(context.Background(), v); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	hpRepo := repositories.NewHpLookupRepository(db)
	reopened, err := hpRepo.Reopen(context.Background(), KeyFor(v))
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if !reopened {
		t.Fatal("expected the entry to be re-opened")
	}

	// With a cold hot-tier, the next resolve must hit the services again.
	spec2 := &mockSpecAPI{fetchPowerFunc: func(ctx context.Context, id int64) (int, error) { return 140, nil }}
	r2 := resolverForTest(t, db, spec2, est)

	hp, err := r2.Resolve(context.Background(), v)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if hp != 140 {
		t.Errorf("hp = %d, want 140 after reopen", hp)
	}
	if spec2.calls == 0 {
		t.Error("re-opened entry should reach the spec API again")
	}
}
