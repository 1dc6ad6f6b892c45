package constants

// Raw SQL used by the reconciliation engine. These run through sqlx against
// live tables; each statement is a single unit of work on one pooled
// connection, so consistency between passes is best-effort by design.
const (
	// Destination ids with no matching source row (orphans to delete).
	SelectOrphanCatalogIDs = `
	SELECT c.id FROM catalog_vehicles c
	LEFT JOIN source_vehicles s ON s.id = c.id
	WHERE s.id IS NULL
	`

	// Source ids with no matching destination row (gaps to backfill).
	SelectMissingCatalogIDs = `
	SELECT s.id FROM source_vehicles s
	LEFT JOIN catalog_vehicles c ON c.id = s.id
	WHERE c.id IS NULL
	`

	// Ids whose price disagrees between the two tables.
	SelectPriceDriftIDs = `
	SELECT s.id FROM source_vehicles s
	JOIN catalog_vehicles c ON c.id = s.id
	WHERE s.price_krw <> c.price_krw
	`

	// Ids whose horsepower disagrees between the two tables. A NULL source
	// horsepower counts as 0.
	SelectHpDriftIDs = `
	SELECT s.id FROM source_vehicles s
	JOIN catalog_vehicles c ON c.id = s.id
	WHERE COALESCE(s.horsepower, 0) <> c.horsepower
	`

	// Source rows still at zero horsepower whose lookup has since resolved
	// to a positive value. Bounded by LIMIT per reconcile pass.
	SelectResolvedHpRows = `
	SELECT s.id, h.horsepower FROM source_vehicles s
	JOIN hp_lookups h
	  ON h.manufacturer = s.manufacturer
	 AND h.model_group  = COALESCE(s.model_group, '')
	 AND h.model        = s.model
	 AND h.grade        = COALESCE(s.grade, '')
	 AND h.year         = s.year
	 AND h.fuel         = COALESCE(s.fuel, '')
	 AND h.transmission = COALESCE(s.transmission, '')
	 AND h.displacement = COALESCE(s.displacement, 0)
	WHERE h.status = 'done' AND h.horsepower > 0
	  AND COALESCE(s.horsepower, 0) = 0
	LIMIT $1
	`

	// Photo rows whose vehicle has left the catalog.
	DeleteOrphanCatalogPhotos = `
	DELETE FROM catalog_photos
	WHERE NOT EXISTS (
		SELECT 1 FROM catalog_vehicles c WHERE c.id = catalog_photos.vehicle_id
	)
	`

	VacuumCatalog = `VACUUM ANALYZE catalog_vehicles`
)
