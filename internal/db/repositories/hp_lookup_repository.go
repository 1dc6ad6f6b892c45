package repositories

import (
	"context"
	"time"

	gormModels "carbridge/pricer/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HpKey is the composite natural key of one horsepower fact.
type HpKey struct {
	Manufacturer string
	ModelGroup   string
	Model        string
	Grade        string
	Year         int
	Fuel         string
	Transmission string
	Displacement int
}

// HpLookupRepository persists the multi-source lookup cache, including
// negative entries (status done with value 0).
type HpLookupRepository struct {
	db *gormlib.DB
}

func NewHpLookupRepository(db *gormlib.DB) *HpLookupRepository {
	return &HpLookupRepository{db: db}
}

// FindByKey returns the cached row for a key, nil when never looked up.
func (r *HpLookupRepository) FindByKey(ctx context.Context, key HpKey) (*gormModels.HpLookup, error) {
	var row gormModels.HpLookup

	err := r.db.WithContext(ctx).
		Where("manufacturer = ? AND model_group = ? AND model = ? AND grade = ? AND year = ? AND fuel = ? AND transmission = ? AND displacement = ?",
			key.Manufacturer, key.ModelGroup, key.Model, key.Grade,
			key.Year, key.Fuel, key.Transmission, key.Displacement).
		First(&row).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// SaveResult upserts a terminal lookup result for a key. Value 0 with
// provenance not_found is the negative-cache entry.
func (r *HpLookupRepository) SaveResult(ctx context.Context, key HpKey, hp int, provenance, marker string) error {
	now := time.Now()
	row := gormModels.HpLookup{
		Manufacturer:  key.Manufacturer,
		ModelGroup:    key.ModelGroup,
		Model:         key.Model,
		Grade:         key.Grade,
		Year:          key.Year,
		Fuel:          key.Fuel,
		Transmission:  key.Transmission,
		Displacement:  key.Displacement,
		Horsepower:    hp,
		Status:        gormModels.HpStatusDone,
		Provenance:    provenance,
		Marker:        marker,
		LastCheckedAt: &now,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "manufacturer"}, {Name: "model_group"}, {Name: "model"},
				{Name: "grade"}, {Name: "year"}, {Name: "fuel"},
				{Name: "transmission"}, {Name: "displacement"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"horsepower", "status", "provenance", "marker", "last_checked_at", "updated_at",
			}),
		}).
		Create(&row).Error
}

// Reopen flips a done entry back to pending so the next resolution attempt
// queries the external services again. Manual re-open path for negative
// entries whose upstream coverage may have improved.
func (r *HpLookupRepository) Reopen(ctx context.Context, key HpKey) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&gormModels.HpLookup{}).
		Where("manufacturer = ? AND model_group = ? AND model = ? AND grade = ? AND year = ? AND fuel = ? AND transmission = ? AND displacement = ?",
			key.Manufacturer, key.ModelGroup, key.Model, key.Grade,
			key.Year, key.Fuel, key.Transmission, key.Displacement).
		Updates(map[string]interface{}{
			"status":     gormModels.HpStatusPending,
			"provenance": gormModels.HpSourceManual,
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
