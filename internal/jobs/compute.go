package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	gormModels "carbridge/pricer/internal/models/gorm"
	"carbridge/pricer/internal/pricing"
)

// pricingDoc is the JSON document stored on each catalog row. It carries the
// full cost breakdown for both currency conventions plus a flattened summary
// so the storefront never has to join back to the source table.
type pricingDoc struct {
	Current *pricing.Result `json:"current"`
	Meta    pricingMeta     `json:"meta"`
}

type pricingMeta struct {
	Manufacturer  string `json:"manufacturer"`
	Model         string `json:"model"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	Mileage       int    `json:"mileage"`
	AccidentCount int    `json:"accidentCount"`
	Horsepower    int    `json:"horsepower"`
	ComputedAt    string `json:"computedAt"`
}

// clearanceLeadMonths is the typical shipping-plus-paperwork lag between a
// quote and customs clearance. The utilization coefficient is keyed by the
// year the fee takes effect, so a quote late in the year pays next year's
// rate.
const clearanceLeadMonths = 2

// buildCatalogRow prices a source vehicle against the given reference
// snapshot and assembles the derived catalog row.
func buildCatalogRow(v *gormModels.SourceVehicle, snap *pricing.Snapshot, asOf time.Time) (*gormModels.CatalogVehicle, error) {
	prodDate := time.Date(v.Year, time.Month(v.Month), 1, 0, 0, 0, 0, time.UTC)
	category := pricing.Classify(pricing.AgeInMonths(prodDate, asOf))
	hp := v.HorsepowerValue()
	feeYear := asOf.AddDate(0, clearanceLeadMonths, 0).Year()

	result, err := pricing.ComputeCost(v, snap, prodDate, category, hp, feeYear, asOf)
	if err != nil {
		return nil, fmt.Errorf("pricing vehicle %d: %w", v.ID, err)
	}

	doc := pricingDoc{
		Current: result,
		Meta: pricingMeta{
			Manufacturer:  v.Manufacturer,
			Model:         v.Model,
			Year:          v.Year,
			Month:         v.Month,
			Mileage:       v.Mileage,
			AccidentCount: v.AccidentCount,
			Horsepower:    hp,
			ComputedAt:    asOf.UTC().Format(time.RFC3339),
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding pricing doc for vehicle %d: %w", v.ID, err)
	}

	return &gormModels.CatalogVehicle{
		ID:            v.ID,
		Manufacturer:  v.Manufacturer,
		Model:         v.Model,
		Grade:         v.Grade,
		Fuel:          v.Fuel,
		Transmission:  v.Transmission,
		Displacement:  v.Displacement,
		Year:          v.Year,
		Month:         v.Month,
		Mileage:       v.Mileage,
		PriceKRW:      v.PriceKRW,
		Horsepower:    hp,
		AgeCategory:   string(result.Category),
		TotalUSDTRUB:  result.USDT.TotalRUB,
		TotalSwiftRUB: result.Swift.TotalRUB,
		CustomsDuty:   result.USDT.CustomsDuty,
		UtilFee:       result.USDT.UtilFee,
		Pricing:       string(raw),
		Photos:        v.Photos,
		UpdatedAt:     asOf,
	}, nil
}
