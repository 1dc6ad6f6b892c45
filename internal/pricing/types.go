package pricing

// AgeCategory is one of three mutually exclusive vehicle-age classes. It
// drives duty-rate selection and the utilization-fee column set.
type AgeCategory string

const (
	CategoryNewest AgeCategory = "newest" // under 36 months
	CategoryMid    AgeCategory = "mid"    // 36 to 59 months
	CategoryOldest AgeCategory = "oldest" // 60 months and up
)

// Classify maps a whole-month age onto its category. Boundaries are
// inclusive on the older side: exactly 36 months is mid, exactly 60 oldest.
func Classify(ageMonths int) AgeCategory {
	switch {
	case ageMonths < 36:
		return CategoryNewest
	case ageMonths < 60:
		return CategoryMid
	default:
		return CategoryOldest
	}
}

// EngineClass separates combustion drivetrains from electric and hybrid
// ones for utilization-fee table selection.
type EngineClass string

const (
	EngineCombustion EngineClass = "combustion"
	EngineElectric   EngineClass = "electric"
)

// electricFuels is the fuel-type membership set for the electric class.
var electricFuels = map[string]struct{}{
	"electric":       {},
	"hybrid":         {},
	"plug-in hybrid": {},
}

// ClassifyEngine returns the engine class for a fuel type string.
func ClassifyEngine(fuel string) EngineClass {
	if _, ok := electricFuels[fuel]; ok {
		return EngineElectric
	}
	return EngineCombustion
}

// Exchange-rate pair names expected in a snapshot.
const (
	PairUSDTKRW = "USDTKRW"
	PairUSDTRUB = "USDTRUB"
	PairEURRUB  = "EURRUB"
)

// DutyBand is a flat EUR-per-cm3 duty row for the mid or oldest category.
type DutyBand struct {
	Category   AgeCategory
	VolumeFrom int
	VolumeTo   int
	RateEURCm3 float64
}

// PercentBand is a percent-of-value duty row for the newest category,
// floored by a per-cm3 minimum.
type PercentBand struct {
	VolumeFrom int
	VolumeTo   int
	Percent    float64
	MinEURCm3  float64
}

// UtilRate is one power-aware utilization coefficient row. The three
// coefficient columns distinguish the calendar year the fee takes effect.
type UtilRate struct {
	AgeFrom     int
	AgeTo       int
	VolumeFrom  int
	VolumeTo    int
	EngineClass EngineClass
	PowerFrom   int
	PowerTo     int
	CoefThis    float64
	CoefNext    float64
	CoefAfter   float64
}

// LegacyUtilRate is the pre-power-band coefficient row, kept as a fallback
// when the power-aware table is absent.
type LegacyUtilRate struct {
	AgeFrom     int
	AgeTo       int
	VolumeFrom  int
	VolumeTo    int
	EngineClass EngineClass
	CoefThis    float64
	CoefNext    float64
	CoefAfter   float64
}

// ClearanceBand is a flat clearance fee row banded by converted price.
type ClearanceBand struct {
	PriceFrom int64
	PriceTo   int64
	FeeRUB    float64
}

// Snapshot is the immutable-per-cycle reference data set. Built once by the
// loader, shared read-only by every worker, released when the cycle ends.
type Snapshot struct {
	DutyBands    []DutyBand
	PercentBands []PercentBand
	UtilRates    []UtilRate
	// LegacyUtilRates may be empty: the source table is optional.
	LegacyUtilRates []LegacyUtilRate
	ClearanceBands  []ClearanceBand
	Rates           map[string]float64
	BankKRWRUB      float64
}

// Rate returns the quote for a pair, 0 when absent.
func (s *Snapshot) Rate(pair string) float64 {
	return s.Rates[pair]
}

// Breakdown is one landed-cost estimate in a single currency convention.
// Every field is rounded to whole units at its own stage: totals are not
// recomputable from the other fields alone.
type Breakdown struct {
	KoreaPriceKRW int64 `json:"korea_price_krw"`
	KoreaPriceRUB int64 `json:"korea_price_rub"`
	KoreaFeesRUB  int64 `json:"korea_fees_rub"`
	InsuranceAdj  int64 `json:"insurance_adj_rub"`
	KoreaTotalRUB int64 `json:"korea_total_rub"`

	CustomsDuty  int64 `json:"customs_duty_rub"`
	UtilFee      int64 `json:"util_fee_rub"`
	ClearanceFee int64 `json:"clearance_fee_rub"`
	BrokerFee    int64 `json:"broker_fee_rub"`
	CustomsTotal int64 `json:"customs_total_rub"`

	TotalRUB int64 `json:"total_rub"`
}

// Result carries both currency conventions for one vehicle, plus an
// optional preview of the cost once the vehicle crosses into the mid band.
type Result struct {
	Category AgeCategory `json:"category"`
	USDT     Breakdown   `json:"usdt"`
	Swift    Breakdown   `json:"swift"`

	Simulated *Simulated `json:"simulated,omitempty"`
}

// Simulated is the what-if breakdown for a newest-category vehicle that
// will become mid within the next 12 months.
type Simulated struct {
	MonthsUntilMid int         `json:"months_until_mid"`
	Category       AgeCategory `json:"category"`
	USDT           Breakdown   `json:"usdt"`
	Swift          Breakdown   `json:"swift"`
}
