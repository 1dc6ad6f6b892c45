package lookup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carbridge/pricer/internal/common"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/logging"
	gormModels "carbridge/pricer/internal/models/gorm"
)

const cacheTTL = 6 * time.Hour

// skipPatterns mark generic catch-all category values that no specification
// source can answer for. Matching keys are resolved to 0 without any
// external call.
var skipPatterns = []string{
	"other manufacturer",
	"other model",
	"etc",
	"기타",
}

// SpecAPI is the structured specification source, tried first.
type SpecAPI interface {
	FetchPower(ctx context.Context, vehicleID int64) (int, error)
}

// Estimator is the generative fallback source.
type Estimator interface {
	EstimatePower(ctx context.Context, v *gormModels.SourceVehicle) (int, error)
}

// Resolver runs the multi-source horsepower resolution chain with a hot
// cache tier in front of the persistent hp_lookups table. Terminal results
// are sticky, including 0: that negative cache is what bounds external-API
// usage across cycles.
type Resolver struct {
	hpRepo      *repositories.HpLookupRepository
	vehicleRepo *repositories.VehicleRepository
	cache       common.Cache
	specAPI     SpecAPI
	estimator   Estimator

	siblingTries int
	tryDelay     time.Duration
}

func NewResolver(
	hpRepo *repositories.HpLookupRepository,
	vehicleRepo *repositories.VehicleRepository,
	cache common.Cache,
	specAPI SpecAPI,
	estimator Estimator,
	siblingTries int,
	tryDelay time.Duration,
) *Resolver {
	if siblingTries <= 0 {
		siblingTries = 3
	}
	return &Resolver{
		hpRepo:       hpRepo,
		vehicleRepo:  vehicleRepo,
		cache:        cache,
		specAPI:      specAPI,
		estimator:    estimator,
		siblingTries: siblingTries,
		tryDelay:     tryDelay,
	}
}

// KeyFor builds the composite lookup key of a vehicle.
func KeyFor(v *gormModels.SourceVehicle) repositories.HpKey {
	return repositories.HpKey{
		Manufacturer: v.Manufacturer,
		ModelGroup:   v.ModelGroup,
		Model:        v.Model,
		Grade:        v.Grade,
		Year:         v.Year,
		Fuel:         v.Fuel,
		Transmission: v.Transmission,
		Displacement: v.Displacement,
	}
}

func cacheKey(key repositories.HpKey) string {
	return fmt.Sprintf("hp:%s:%s:%s:%s:%d:%s:%s:%d",
		key.Manufacturer, key.ModelGroup, key.Model, key.Grade,
		key.Year, key.Fuel, key.Transmission, key.Displacement)
}

// Resolve returns the horsepower for a vehicle, walking the chain:
// hot cache, persistent cache, skip patterns, spec API over siblings,
// generative estimation, and finally a persisted negative result. Every
// positive resolution is written back to the vehicle's source row.
func (r *Resolver) Resolve(ctx context.Context, v *gormModels.SourceVehicle) (int, error) {
	key := KeyFor(v)
	ck := cacheKey(key)

	if val, found := r.cache.Get(ck); found {
		return toInt(val), nil
	}

	row, err := r.hpRepo.FindByKey(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("hp cache lookup: %w", err)
	}
	if row != nil && row.Status == gormModels.HpStatusDone {
		r.cache.Set(ck, row.Horsepower, cacheTTL)
		if row.Horsepower > 0 && v.HorsepowerValue() == 0 {
			if err := r.vehicleRepo.UpdateHorsepower(ctx, v.ID, row.Horsepower); err != nil {
				logging.Warn("Failed to propagate cached horsepower", "vehicle_id", v.ID, "error", err.Error())
			}
		}
		return row.Horsepower, nil
	}

	if r.matchesSkipPattern(key) {
		if err := r.finish(ctx, v, key, ck, 0, gormModels.HpSourceSkipped, "generic category value"); err != nil {
			return 0, err
		}
		return 0, nil
	}

	if hp, err := r.resolveViaSpecAPI(ctx, v); err != nil {
		logging.Warn("Spec API chain failed", "vehicle_id", v.ID, "error", err.Error())
	} else if hp > 0 {
		if err := r.finish(ctx, v, key, ck, hp, gormModels.HpSourceSpecAPI, ""); err != nil {
			return 0, err
		}
		return hp, nil
	}

	if hp, err := r.estimator.EstimatePower(ctx, v); err != nil {
		logging.Warn("Estimation service failed", "vehicle_id", v.ID, "error", err.Error())
	} else if hp > 0 {
		if err := r.finish(ctx, v, key, ck, hp, gormModels.HpSourceGenAI, ""); err != nil {
			return 0, err
		}
		return hp, nil
	}

	// Both sources came up empty: persist the negative result so this key
	// never triggers another external call. Re-openable via the admin API.
	if err := r.finish(ctx, v, key, ck, 0, gormModels.HpSourceNotFound, "exhausted all sources"); err != nil {
		return 0, err
	}
	return 0, nil
}

func (r *Resolver) matchesSkipPattern(key repositories.HpKey) bool {
	fields := []string{key.Manufacturer, key.ModelGroup, key.Model, key.Grade}
	for _, field := range fields {
		lower := strings.ToLower(field)
		for _, pattern := range skipPatterns {
			if strings.Contains(lower, pattern) {
				return true
			}
		}
	}
	return false
}

// resolveViaSpecAPI tries up to siblingTries vehicles sharing the composite
// key, accepting the first positive answer.
func (r *Resolver) resolveViaSpecAPI(ctx context.Context, v *gormModels.SourceVehicle) (int, error) {
	ids, err := r.vehicleRepo.Siblings(ctx, v, r.siblingTries)
	if err != nil {
		return 0, fmt.Errorf("sibling query: %w", err)
	}
	if len(ids) == 0 {
		ids = []int64{v.ID}
	}

	var lastErr error
	for i, id := range ids {
		if i > 0 && r.tryDelay > 0 {
			if err := sleepCtx(ctx, r.tryDelay); err != nil {
				return 0, err
			}
		}

		hp, err := r.specAPI.FetchPower(ctx, id)
		if err != nil {
			lastErr = err
			continue
		}
		if hp > 0 {
			return hp, nil
		}
	}
	return 0, lastErr
}

// finish persists the terminal result, warms the hot cache, and backfills
// the source row when the value is positive.
func (r *Resolver) finish(ctx context.Context, v *gormModels.SourceVehicle, key repositories.HpKey, ck string, hp int, provenance, marker string) error {
	if err := r.hpRepo.SaveResult(ctx, key, hp, provenance, marker); err != nil {
		return fmt.Errorf("persist hp result: %w", err)
	}
	r.cache.Set(ck, hp, cacheTTL)

	if hp > 0 {
		if err := r.vehicleRepo.UpdateHorsepower(ctx, v.ID, hp); err != nil {
			return fmt.Errorf("backfill source horsepower: %w", err)
		}
		v.Horsepower = &hp
	}
	return nil
}

func toInt(val interface{}) int {
	switch n := val.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		// Redis round-trips numbers through JSON as float64.
		return int(n)
	default:
		return 0
	}
}
