package pricing

import (
	"fmt"
	"math"
	"time"

	gormModels "carbridge/pricer/internal/models/gorm"
)

// Fixed fee constants. These are business constants, not jurisdiction data;
// everything banded or rate-like lives in the reference tables.
const (
	// Korea-side fixed costs (inland transport, port handling, export paperwork).
	koreaFixedFeeKRW = 1_100_000

	// Flat customs broker fee.
	brokerFeeRUB = 50_000

	// Base fee the utilization coefficient multiplies.
	utilBaseFeeRUB = 20_000

	// Months within which a newest vehicle qualifies for the simulation branch.
	simulationWindow = 12
)

// AgeInMonths returns the vehicle age in whole months at asOf.
func AgeInMonths(prod, asOf time.Time) int {
	return (asOf.Year()-prod.Year())*12 + int(asOf.Month()) - int(prod.Month())
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

// ComputeCost computes the full landed-cost breakdown for one vehicle in
// both currency conventions. Pure: no I/O, no clock use beyond asOf.
//
// The caller supplies the already-classified category and the resolved
// horsepower (0 = unknown, which zeroes the utilization fee). dutyYear is
// the calendar year the utilization fee takes effect, used to select the
// coefficient column relative to asOf.
func ComputeCost(v *gormModels.SourceVehicle, snap *Snapshot, prodDate time.Time,
	category AgeCategory, hp int, dutyYear int, asOf time.Time) (*Result, error) {

	if snap == nil {
		return nil, fmt.Errorf("nil reference snapshot")
	}

	usdtKRW := snap.Rate(PairUSDTKRW)
	usdtRUB := snap.Rate(PairUSDTRUB)
	eurRUB := snap.Rate(PairEURRUB)
	if usdtKRW <= 0 || usdtRUB <= 0 || eurRUB <= 0 {
		return nil, fmt.Errorf("snapshot missing exchange rates: USDTKRW=%v USDTRUB=%v EURRUB=%v", usdtKRW, usdtRUB, eurRUB)
	}
	if snap.BankKRWRUB <= 0 {
		return nil, fmt.Errorf("snapshot missing bank KRW/RUB rate")
	}

	// Korea-side price in RUB under each convention. Both start from the
	// same KRW price; the business quotes both.
	usdtPriceRUB := round(float64(v.PriceKRW) / usdtKRW * usdtRUB)
	swiftPriceRUB := round(float64(v.PriceKRW) * snap.BankKRWRUB)

	ageYears := AgeInMonths(prodDate, asOf) / 12

	usdt, err := computeConvention(v, snap, category, hp, dutyYear, asOf, ageYears, usdtPriceRUB,
		round(float64(koreaFixedFeeKRW)/usdtKRW*usdtRUB),
		round(float64(v.AccidentCost)/usdtKRW*usdtRUB), eurRUB)
	if err != nil {
		return nil, err
	}

	swift, err := computeConvention(v, snap, category, hp, dutyYear, asOf, ageYears, swiftPriceRUB,
		round(float64(koreaFixedFeeKRW)*snap.BankKRWRUB),
		round(float64(v.AccidentCost)*snap.BankKRWRUB), eurRUB)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Category: category,
		USDT:     *usdt,
		Swift:    *swift,
	}

	// Simulation branch: preview the cost once the vehicle crosses into the
	// lower-duty mid band, keeping the original production date.
	if category == CategoryNewest {
		remaining := 36 - AgeInMonths(prodDate, asOf)
		if remaining > 0 && remaining < simulationWindow {
			shifted := asOf.AddDate(0, remaining, 0)
			sim, err := ComputeCost(v, snap, prodDate, CategoryMid, hp, dutyYear, shifted)
			if err != nil {
				return nil, fmt.Errorf("simulation branch: %w", err)
			}
			res.Simulated = &Simulated{
				MonthsUntilMid: remaining,
				Category:       CategoryMid,
				USDT:           sim.USDT,
				Swift:          sim.Swift,
			}
		}
	}

	return res, nil
}

func computeConvention(v *gormModels.SourceVehicle, snap *Snapshot, category AgeCategory,
	hp int, dutyYear int, asOf time.Time, ageYears int,
	priceRUB, koreaFeesRUB, insuranceAdj int64, eurRUB float64) (*Breakdown, error) {

	duty, err := computeDuty(snap, category, v.Displacement, priceRUB, eurRUB)
	if err != nil {
		return nil, err
	}

	utilFee := computeUtilFee(snap, category, ClassifyEngine(v.Fuel), ageYears, v.Displacement, hp, dutyYear, asOf)
	clearance := computeClearanceFee(snap, priceRUB)

	koreaTotal := priceRUB + koreaFeesRUB + insuranceAdj
	customsTotal := duty + utilFee + clearance + brokerFeeRUB

	return &Breakdown{
		KoreaPriceKRW: v.PriceKRW,
		KoreaPriceRUB: priceRUB,
		KoreaFeesRUB:  koreaFeesRUB,
		InsuranceAdj:  insuranceAdj,
		KoreaTotalRUB: koreaTotal,
		CustomsDuty:   duty,
		UtilFee:       utilFee,
		ClearanceFee:  clearance,
		BrokerFee:     brokerFeeRUB,
		CustomsTotal:  customsTotal,
		TotalRUB:      koreaTotal + customsTotal,
	}, nil
}

// computeDuty applies the percent-of-value schedule to the newest category
// and the flat EUR-per-cm3 schedule to the others.
func computeDuty(snap *Snapshot, category AgeCategory, displacement int, priceRUB int64, eurRUB float64) (int64, error) {
	if category == CategoryNewest {
		for _, b := range snap.PercentBands {
			if displacement >= b.VolumeFrom && displacement < b.VolumeTo {
				byPercent := b.Percent / 100 * float64(priceRUB)
				byMinimum := b.MinEURCm3 * float64(displacement) * eurRUB
				return round(math.Max(byPercent, byMinimum)), nil
			}
		}
		return 0, fmt.Errorf("no percent duty band for displacement %d", displacement)
	}

	for _, b := range snap.DutyBands {
		if b.Category == category && displacement >= b.VolumeFrom && displacement < b.VolumeTo {
			return round(b.RateEURCm3 * float64(displacement) * eurRUB), nil
		}
	}
	return 0, fmt.Errorf("no duty band for category %s displacement %d", category, displacement)
}

// computeUtilFee resolves the coefficient from the power-aware table, or the
// legacy table when the power-aware one is absent. Zero horsepower means the
// fee cannot be classified and yields zero.
func computeUtilFee(snap *Snapshot, category AgeCategory, class EngineClass,
	ageYears, displacement, hp, dutyYear int, asOf time.Time) int64 {

	if hp <= 0 {
		return 0
	}

	coef, found := utilCoefficient(snap, class, ageYears, displacement, hp, dutyYear, asOf)
	if !found {
		coef, found = legacyUtilCoefficient(snap, class, ageYears, displacement, dutyYear, asOf)
	}
	if !found {
		return 0
	}
	return round(coef * utilBaseFeeRUB)
}

func utilCoefficient(snap *Snapshot, class EngineClass, ageYears, displacement, hp, dutyYear int, asOf time.Time) (float64, bool) {
	for _, r := range snap.UtilRates {
		if r.EngineClass != class {
			continue
		}
		if ageYears < r.AgeFrom || ageYears >= r.AgeTo {
			continue
		}
		// Electric drivetrains are banded without a volume range.
		if class == EngineCombustion && (displacement < r.VolumeFrom || displacement >= r.VolumeTo) {
			continue
		}
		if hp < r.PowerFrom || hp >= r.PowerTo {
			continue
		}
		return pickCoefficient(r.CoefThis, r.CoefNext, r.CoefAfter, dutyYear, asOf), true
	}
	return 0, false
}

func legacyUtilCoefficient(snap *Snapshot, class EngineClass, ageYears, displacement, dutyYear int, asOf time.Time) (float64, bool) {
	for _, r := range snap.LegacyUtilRates {
		if r.EngineClass != class {
			continue
		}
		if ageYears < r.AgeFrom || ageYears >= r.AgeTo {
			continue
		}
		if class == EngineCombustion && (displacement < r.VolumeFrom || displacement >= r.VolumeTo) {
			continue
		}
		return pickCoefficient(r.CoefThis, r.CoefNext, r.CoefAfter, dutyYear, asOf), true
	}
	return 0, false
}

// pickCoefficient selects the column for the calendar year the fee takes
// effect: this year, next year, or any later year.
func pickCoefficient(this, next, after float64, dutyYear int, asOf time.Time) float64 {
	switch {
	case dutyYear <= asOf.Year():
		return this
	case dutyYear == asOf.Year()+1:
		return next
	default:
		return after
	}
}

func computeClearanceFee(snap *Snapshot, priceRUB int64) int64 {
	for _, b := range snap.ClearanceBands {
		if priceRUB >= b.PriceFrom && priceRUB < b.PriceTo {
			return round(b.FeeRUB)
		}
	}
	return 0
}
