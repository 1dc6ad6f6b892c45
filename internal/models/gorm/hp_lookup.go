package gorm

import "time"

// Lookup row status values. Done is terminal and sticky, including when the
// stored value is 0: that is a deliberate negative cache entry, not a gap.
const (
	HpStatusPending = "pending"
	HpStatusDone    = "done"
)

// Provenance values recorded with a resolved lookup.
const (
	HpSourceSpecAPI  = "spec_api"
	HpSourceGenAI    = "gen_ai"
	HpSourceSkipped  = "skipped"
	HpSourceNotFound = "not_found"
	HpSourceManual   = "manual"
)

// HpLookup caches one horsepower fact per composite vehicle key.
type HpLookup struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`

	// Composite natural key
	Manufacturer string `gorm:"column:manufacturer;type:varchar(100);not null;uniqueIndex:ux_hp_lookup_key"`
	ModelGroup   string `gorm:"column:model_group;type:varchar(100);not null;uniqueIndex:ux_hp_lookup_key"`
	Model        string `gorm:"column:model;type:varchar(150);not null;uniqueIndex:ux_hp_lookup_key"`
	Grade        string `gorm:"column:grade;type:varchar(150);not null;uniqueIndex:ux_hp_lookup_key"`
	Year         int    `gorm:"column:year;type:integer;not null;uniqueIndex:ux_hp_lookup_key"`
	Fuel         string `gorm:"column:fuel;type:varchar(50);not null;uniqueIndex:ux_hp_lookup_key"`
	Transmission string `gorm:"column:transmission;type:varchar(50);not null;uniqueIndex:ux_hp_lookup_key"`
	Displacement int    `gorm:"column:displacement;type:integer;not null;uniqueIndex:ux_hp_lookup_key"`

	// 0 with status done means "looked up, confirmed unknown".
	Horsepower int    `gorm:"column:horsepower;type:integer;not null;default:0"`
	Status     string `gorm:"column:status;type:varchar(20);not null;default:pending"`
	Provenance string `gorm:"column:provenance;type:varchar(30)"`
	Marker     string `gorm:"column:marker;type:text"`

	LastCheckedAt *time.Time `gorm:"column:last_checked_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (HpLookup) TableName() string {
	return "hp_lookups"
}
