package repositories

import (
	"context"
	"time"

	gormModels "carbridge/pricer/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// CycleHistoryRepository records completed cycles.
type CycleHistoryRepository struct {
	db *gormlib.DB
}

func NewCycleHistoryRepository(db *gormlib.DB) *CycleHistoryRepository {
	return &CycleHistoryRepository{db: db}
}

// RecordCycle inserts one history row and returns its run id.
func (r *CycleHistoryRepository) RecordCycle(ctx context.Context, kind string, processed, failed int, duration time.Duration, note string) (string, error) {
	row := gormModels.CycleHistory{
		ID:         uuid.NewString(),
		CycleKind:  kind,
		Processed:  processed,
		Failed:     failed,
		DurationMS: duration.Milliseconds(),
		Note:       note,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

// LastCycle returns the most recent history row for a kind, nil when none.
func (r *CycleHistoryRepository) LastCycle(ctx context.Context, kind string) (*gormModels.CycleHistory, error) {
	var row gormModels.CycleHistory

	err := r.db.WithContext(ctx).
		Where("cycle_kind = ?", kind).
		Order("created_at DESC").
		First(&row).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
