package repositories

import (
	"context"

	"carbridge/pricer/internal/constants"

	"github.com/jmoiron/sqlx"
)

// ResolvedHpRow pairs a source vehicle id with its freshly resolved
// horsepower from the lookup cache.
type ResolvedHpRow struct {
	ID         int64 `db:"id"`
	Horsepower int   `db:"horsepower"`
}

// ReconRepository runs the raw reconciliation SQL through sqlx. Each call is
// one statement on one pooled connection; there is no transaction spanning
// passes, so consistency between them is best-effort.
type ReconRepository struct {
	db *sqlx.DB
}

func NewReconRepository(db *sqlx.DB) *ReconRepository {
	return &ReconRepository{db: db}
}

// OrphanCatalogIDs returns destination ids with no source row.
func (r *ReconRepository) OrphanCatalogIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, constants.SelectOrphanCatalogIDs)
	return ids, err
}

// MissingCatalogIDs returns source ids with no destination row.
func (r *ReconRepository) MissingCatalogIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, constants.SelectMissingCatalogIDs)
	return ids, err
}

// PriceDriftIDs returns ids whose price disagrees between the tables.
func (r *ReconRepository) PriceDriftIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, constants.SelectPriceDriftIDs)
	return ids, err
}

// HpDriftIDs returns ids whose horsepower disagrees between the tables.
func (r *ReconRepository) HpDriftIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, constants.SelectHpDriftIDs)
	return ids, err
}

// ResolvedHpRows returns up to limit source rows still at zero horsepower
// whose lookup has since resolved positively.
func (r *ReconRepository) ResolvedHpRows(ctx context.Context, limit int) ([]ResolvedHpRow, error) {
	var rows []ResolvedHpRow
	err := r.db.SelectContext(ctx, &rows, constants.SelectResolvedHpRows, limit)
	return rows, err
}

// CleanupOrphanPhotos deletes photo rows whose vehicle left the catalog.
func (r *ReconRepository) CleanupOrphanPhotos(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, constants.DeleteOrphanCatalogPhotos)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// VacuumCatalog runs the periodic maintenance operation.
func (r *ReconRepository) VacuumCatalog(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, constants.VacuumCatalog)
	return err
}
