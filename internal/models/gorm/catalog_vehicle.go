package gorm

import "time"

// CatalogVehicle is the derived row published into the queryable catalog.
// It shares the numeric id of the SourceVehicle it was computed from.
type CatalogVehicle struct {
	ID int64 `gorm:"column:id;primaryKey"`

	Manufacturer string `gorm:"column:manufacturer;type:varchar(100);not null"`
	Model        string `gorm:"column:model;type:varchar(150);not null"`
	Grade        string `gorm:"column:grade;type:varchar(150)"`
	Fuel         string `gorm:"column:fuel;type:varchar(50)"`
	Transmission string `gorm:"column:transmission;type:varchar(50)"`
	Displacement int    `gorm:"column:displacement;type:integer"`
	Year         int    `gorm:"column:year;type:integer;not null"`
	Month        int    `gorm:"column:month;type:integer;not null"`
	Mileage      int    `gorm:"column:mileage;type:integer"`

	// Mirrored commercial fields, tracked by drift reconciliation.
	PriceKRW   int64 `gorm:"column:price_krw;type:bigint;not null"`
	Horsepower int   `gorm:"column:horsepower;type:integer;not null;default:0"`

	// Headline derived figures for list views. Full breakdowns live in
	// the pricing document.
	AgeCategory  string `gorm:"column:age_category;type:varchar(20);not null"`
	TotalUSDTRUB int64  `gorm:"column:total_usdt_rub;type:bigint;not null"`
	TotalSwiftRUB int64 `gorm:"column:total_swift_rub;type:bigint;not null"`
	CustomsDuty  int64  `gorm:"column:customs_duty;type:bigint;not null"`
	UtilFee      int64  `gorm:"column:util_fee;type:bigint;not null"`

	// Structured document: current breakdown, optional simulated breakdown,
	// flattened metadata summary.
	Pricing string `gorm:"column:pricing;type:jsonb;not null"`

	Photos string `gorm:"column:photos;type:jsonb"`

	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (CatalogVehicle) TableName() string {
	return "catalog_vehicles"
}

// CatalogPhoto is the tertiary photo table cleaned up after each full cycle.
type CatalogPhoto struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	VehicleID int64  `gorm:"column:vehicle_id;type:bigint;not null;index"`
	URL       string `gorm:"column:url;type:text;not null"`
	Position  int    `gorm:"column:position;type:integer;not null;default:0"`
}

func (CatalogPhoto) TableName() string {
	return "catalog_photos"
}
