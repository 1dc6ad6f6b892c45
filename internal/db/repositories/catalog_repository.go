package repositories

import (
	"context"

	gormModels "carbridge/pricer/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// catalogUpdateColumns is every derived column refreshed unconditionally on
// conflict. Updating all of them makes the writer idempotent: re-running
// the same computed batch leaves identical business state.
var catalogUpdateColumns = []string{
	"manufacturer", "model", "grade", "fuel", "transmission",
	"displacement", "year", "month", "mileage",
	"price_krw", "horsepower", "age_category",
	"total_usdt_rub", "total_swift_rub", "customs_duty", "util_fee",
	"pricing", "photos", "updated_at",
}

// CatalogRepository writes the destination catalog table.
type CatalogRepository struct {
	db        *gormlib.DB
	chunkSize int
}

func NewCatalogRepository(db *gormlib.DB, chunkSize int) *CatalogRepository {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	return &CatalogRepository{db: db, chunkSize: chunkSize}
}

// UpsertBatch inserts or updates computed rows keyed by id, in fixed-size
// chunks to bound statement size.
func (r *CatalogRepository) UpsertBatch(ctx context.Context, rows []gormModels.CatalogVehicle) error {
	for start := 0; start < len(rows); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(catalogUpdateColumns),
			}).
			Create(&chunk).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteByIDs removes orphaned catalog rows in chunks.
func (r *CatalogRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	for start := 0; start < len(ids); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(ids) {
			end = len(ids)
		}

		err := r.db.WithContext(ctx).
			Where("id IN ?", ids[start:end]).
			Delete(&gormModels.CatalogVehicle{}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// AllIDs returns every catalog id.
func (r *CatalogRepository) AllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&gormModels.CatalogVehicle{}).
		Pluck("id", &ids).Error
	return ids, err
}

// FindByID fetches one catalog row, nil when absent.
func (r *CatalogRepository) FindByID(ctx context.Context, id int64) (*gormModels.CatalogVehicle, error) {
	var row gormModels.CatalogVehicle

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
