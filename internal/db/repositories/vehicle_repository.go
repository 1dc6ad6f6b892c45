package repositories

import (
	"context"

	gormModels "carbridge/pricer/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// VehicleRepository reads the upstream source table. The pipeline treats it
// as read-only except for the horsepower backfill.
type VehicleRepository struct {
	db *gormlib.DB
}

func NewVehicleRepository(db *gormlib.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// FetchPage returns one page ordered by (recency desc, id desc) so
// pagination stays deterministic under concurrent inserts.
func (r *VehicleRepository) FetchPage(ctx context.Context, offset, limit int) ([]gormModels.SourceVehicle, error) {
	var rows []gormModels.SourceVehicle

	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error

	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the total number of source rows.
func (r *VehicleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&gormModels.SourceVehicle{}).
		Count(&count).Error
	return count, err
}

// FindByIDs fetches specific rows, used by reconciliation backfill.
func (r *VehicleRepository) FindByIDs(ctx context.Context, ids []int64) ([]gormModels.SourceVehicle, error) {
	var rows []gormModels.SourceVehicle
	if len(ids) == 0 {
		return rows, nil
	}

	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error

	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateHorsepower backfills the one column the pipeline owns on the
// source table.
func (r *VehicleRepository) UpdateHorsepower(ctx context.Context, id int64, hp int) error {
	return r.db.WithContext(ctx).
		Model(&gormModels.SourceVehicle{}).
		Where("id = ?", id).
		Update("horsepower", hp).Error
}

// Siblings returns ids of other vehicles sharing the same composite lookup
// key, most recent first. The spec-API client tries these in order.
func (r *VehicleRepository) Siblings(ctx context.Context, v *gormModels.SourceVehicle, limit int) ([]int64, error) {
	var ids []int64

	err := r.db.WithContext(ctx).
		Model(&gormModels.SourceVehicle{}).
		Where("manufacturer = ? AND model_group = ? AND model = ? AND grade = ? AND year = ? AND fuel = ? AND transmission = ? AND displacement = ?",
			v.Manufacturer, v.ModelGroup, v.Model, v.Grade, v.Year, v.Fuel, v.Transmission, v.Displacement).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Pluck("id", &ids).Error

	if err != nil {
		return nil, err
	}
	return ids, nil
}
