package repositories

import (
	"context"

	gormModels "carbridge/pricer/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// ReferenceRepository loads the small lookup tables wholesale. Validation
// happens in the loader, not here.
type ReferenceRepository struct {
	db *gormlib.DB
}

func NewReferenceRepository(db *gormlib.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) CustomsDutyBands(ctx context.Context) ([]gormModels.CustomsDutyBand, error) {
	var rows []gormModels.CustomsDutyBand
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}

func (r *ReferenceRepository) PercentDutyBands(ctx context.Context) ([]gormModels.PercentDutyBand, error) {
	var rows []gormModels.PercentDutyBand
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}

func (r *ReferenceRepository) UtilizationRates(ctx context.Context) ([]gormModels.UtilizationRate, error) {
	var rows []gormModels.UtilizationRate
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}

func (r *ReferenceRepository) LegacyUtilizationRates(ctx context.Context) ([]gormModels.LegacyUtilizationRate, error) {
	var rows []gormModels.LegacyUtilizationRate
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}

func (r *ReferenceRepository) ExchangeRates(ctx context.Context) ([]gormModels.ExchangeRate, error) {
	var rows []gormModels.ExchangeRate
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}

func (r *ReferenceRepository) BankRates(ctx context.Context) ([]gormModels.BankRate, error) {
	var rows []gormModels.BankRate
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}

func (r *ReferenceRepository) ClearanceFeeBands(ctx context.Context) ([]gormModels.ClearanceFeeBand, error) {
	var rows []gormModels.ClearanceFeeBand
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}
