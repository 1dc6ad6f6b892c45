package gorm

import "time"

// SourceVehicle is one row of the upstream listing table. The ingestion
// process owns every column except horsepower, which the pipeline backfills
// once a lookup resolves.
type SourceVehicle struct {
	ID int64 `gorm:"column:id;primaryKey"`

	// Category fields
	Manufacturer string `gorm:"column:manufacturer;type:varchar(100);not null"`
	ModelGroup   string `gorm:"column:model_group;type:varchar(100)"`
	Model        string `gorm:"column:model;type:varchar(150);not null"`
	Grade        string `gorm:"column:grade;type:varchar(150)"`
	Fuel         string `gorm:"column:fuel;type:varchar(50)"`
	Transmission string `gorm:"column:transmission;type:varchar(50)"`
	Displacement int    `gorm:"column:displacement;type:integer"`
	Year         int    `gorm:"column:year;type:integer;not null"`
	Month        int    `gorm:"column:month;type:integer;not null"`

	// Commercial fields
	PriceKRW      int64 `gorm:"column:price_krw;type:bigint;not null"`
	Mileage       int   `gorm:"column:mileage;type:integer"`
	AccidentCount int   `gorm:"column:accident_count;type:integer"`
	AccidentCost  int64 `gorm:"column:accident_cost;type:bigint"`

	// Photo references, JSON array of URLs
	Photos string `gorm:"column:photos;type:jsonb"`

	// Backfilled by the horsepower resolution service; 0 means unresolved
	// or confirmed unknown (the hp_lookups row disambiguates).
	Horsepower *int `gorm:"column:horsepower;type:integer"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SourceVehicle) TableName() string {
	return "source_vehicles"
}

// HorsepowerValue returns the backfilled horsepower or 0 when unresolved.
func (v *SourceVehicle) HorsepowerValue() int {
	if v.Horsepower == nil {
		return 0
	}
	return *v.Horsepower
}
