package gorm

// Reference tables. Each one is loaded wholesale into an in-memory snapshot
// at the start of a full cycle and discarded afterwards. Schemas are data:
// operators edit rows, the pipeline never writes them.

// CustomsDutyBand holds the flat EUR-per-cm3 duty rates applied to the mid
// and oldest age categories, banded by engine displacement.
type CustomsDutyBand struct {
	ID         int64    `gorm:"column:id;primaryKey;autoIncrement"`
	Category   string   `gorm:"column:category;type:varchar(20);not null"`
	VolumeFrom int      `gorm:"column:volume_from;type:integer;not null"`
	VolumeTo   int      `gorm:"column:volume_to;type:integer;not null"`
	RateEURCm3 *float64 `gorm:"column:rate_eur_cm3;type:numeric(10,4)"`
}

func (CustomsDutyBand) TableName() string { return "customs_duty_bands" }

// PercentDutyBand holds the percent-of-value duty rows applied to the newest
// category, with a per-cm3 minimum.
type PercentDutyBand struct {
	ID         int64    `gorm:"column:id;primaryKey;autoIncrement"`
	VolumeFrom int      `gorm:"column:volume_from;type:integer;not null"`
	VolumeTo   int      `gorm:"column:volume_to;type:integer;not null"`
	Percent    *float64 `gorm:"column:percent;type:numeric(6,3)"`
	MinEURCm3  *float64 `gorm:"column:min_eur_cm3;type:numeric(10,4)"`
}

func (PercentDutyBand) TableName() string { return "percent_duty_bands" }

// UtilizationRate is the power-aware utilization fee coefficient table,
// keyed by age band, volume band, engine class and power band. The
// coefficient columns distinguish the calendar year the fee takes effect.
type UtilizationRate struct {
	ID          int64    `gorm:"column:id;primaryKey;autoIncrement"`
	AgeFrom     int      `gorm:"column:age_from;type:integer;not null"`
	AgeTo       int      `gorm:"column:age_to;type:integer;not null"`
	VolumeFrom  int      `gorm:"column:volume_from;type:integer;not null"`
	VolumeTo    int      `gorm:"column:volume_to;type:integer;not null"`
	EngineClass string   `gorm:"column:engine_class;type:varchar(20);not null"`
	PowerFrom   int      `gorm:"column:power_from;type:integer;not null"`
	PowerTo     int      `gorm:"column:power_to;type:integer;not null"`
	CoefThis    *float64 `gorm:"column:coef_this_year;type:numeric(12,4)"`
	CoefNext    *float64 `gorm:"column:coef_next_year;type:numeric(12,4)"`
	CoefAfter   *float64 `gorm:"column:coef_after_next;type:numeric(12,4)"`
}

func (UtilizationRate) TableName() string { return "utilization_rates" }

// LegacyUtilizationRate is the pre-power-band coefficient table. The table
// is optional: when missing or empty the engine simply loses the fallback.
type LegacyUtilizationRate struct {
	ID          int64    `gorm:"column:id;primaryKey;autoIncrement"`
	AgeFrom     int      `gorm:"column:age_from;type:integer;not null"`
	AgeTo       int      `gorm:"column:age_to;type:integer;not null"`
	VolumeFrom  int      `gorm:"column:volume_from;type:integer;not null"`
	VolumeTo    int      `gorm:"column:volume_to;type:integer;not null"`
	EngineClass string   `gorm:"column:engine_class;type:varchar(20);not null"`
	CoefThis    *float64 `gorm:"column:coef_this_year;type:numeric(12,4)"`
	CoefNext    *float64 `gorm:"column:coef_next_year;type:numeric(12,4)"`
	CoefAfter   *float64 `gorm:"column:coef_after_next;type:numeric(12,4)"`
}

func (LegacyUtilizationRate) TableName() string { return "legacy_utilization_rates" }

// ExchangeRate is one currency pair quote, e.g. USDTKRW, USDTRUB, EURRUB.
type ExchangeRate struct {
	ID   int64    `gorm:"column:id;primaryKey;autoIncrement"`
	Pair string   `gorm:"column:pair;type:varchar(10);not null;uniqueIndex"`
	Rate *float64 `gorm:"column:rate;type:numeric(18,6)"`
}

func (ExchangeRate) TableName() string { return "exchange_rates" }

// BankRate carries the bank-wire KRW/RUB quote used by the SWIFT convention.
type BankRate struct {
	ID     int64    `gorm:"column:id;primaryKey;autoIncrement"`
	KRWRUB *float64 `gorm:"column:krw_rub;type:numeric(18,8)"`
}

func (BankRate) TableName() string { return "bank_rates" }

// ClearanceFeeBand is the flat customs clearance fee banded by converted
// vehicle price in RUB.
type ClearanceFeeBand struct {
	ID        int64    `gorm:"column:id;primaryKey;autoIncrement"`
	PriceFrom int64    `gorm:"column:price_from;type:bigint;not null"`
	PriceTo   int64    `gorm:"column:price_to;type:bigint;not null"`
	FeeRUB    *float64 `gorm:"column:fee_rub;type:numeric(12,2)"`
}

func (ClearanceFeeBand) TableName() string { return "clearance_fee_bands" }
