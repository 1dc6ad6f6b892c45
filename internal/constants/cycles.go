package constants

// Cycle kinds recorded in the cycle_history table.
const (
	CycleFullRecalc   = "FULL_RECALC"
	CycleIDReconcile  = "ID_RECONCILE"
	CyclePriceDrift   = "PRICE_DRIFT"
	CycleHpDrift      = "HP_DRIFT"
	CycleHpBackfill   = "HP_BACKFILL"
)
