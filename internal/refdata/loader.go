package refdata

import (
	"context"
	"fmt"
	"time"

	"carbridge/pricer/internal/alerts"
	"carbridge/pricer/internal/common"
	"carbridge/pricer/internal/constants"
	"carbridge/pricer/internal/db/repositories"
	"carbridge/pricer/internal/logging"
	"carbridge/pricer/internal/pricing"
)

const (
	defaultMaxAttempts = 10
	defaultBackoff     = 3 * time.Second
)

// Loader builds the per-cycle reference snapshot. Loading is all-or-nothing:
// any required table that is empty or carries a NULL in a required column
// fails the whole load after retries, with an operator alert. Only the
// legacy utilization table is optional.
type Loader struct {
	refs     *repositories.ReferenceRepository
	notifier *alerts.Notifier

	maxAttempts int
	backoff     time.Duration
}

func NewLoader(refs *repositories.ReferenceRepository, notifier *alerts.Notifier) *Loader {
	return &Loader{
		refs:        refs,
		notifier:    notifier,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
}

// LoadAll fetches and validates every reference table into a Snapshot.
func (l *Loader) LoadAll(ctx context.Context) (*pricing.Snapshot, error) {
	snap := &pricing.Snapshot{Rates: make(map[string]float64)}

	steps := []struct {
		name      string
		alertCode string
		load      func(context.Context, *pricing.Snapshot) error
	}{
		{"customs_duty_bands", constants.AlertCustomsDutyInvalid, l.loadDutyBands},
		{"percent_duty_bands", constants.AlertPercentDutyInvalid, l.loadPercentBands},
		{"utilization_rates", constants.AlertUtilizationInvalid, l.loadUtilRates},
		{"exchange_rates", constants.AlertExchangeRateInvalid, l.loadExchangeRates},
		{"bank_rates", constants.AlertBankRateInvalid, l.loadBankRate},
		{"clearance_fee_bands", constants.AlertClearanceFeeInvalid, l.loadClearanceBands},
	}

	for _, step := range steps {
		err := common.Retry(ctx, "load "+step.name, l.maxAttempts, l.backoff, func() error {
			return step.load(ctx, snap)
		})
		if err != nil {
			l.notifier.Notify(ctx, step.alertCode, err.Error())
			return nil, fmt.Errorf("reference load aborted at %s: %w", step.name, err)
		}
	}

	// Optional table: absence or emptiness only degrades the legacy
	// fallback path in the pricing engine.
	if err := l.loadLegacyUtilRates(ctx, snap); err != nil {
		logging.Warn("Legacy utilization table unavailable, fallback path disabled", "error", err.Error())
		snap.LegacyUtilRates = nil
	}

	logging.Info("Reference snapshot loaded",
		"duty_bands", len(snap.DutyBands),
		"percent_bands", len(snap.PercentBands),
		"util_rates", len(snap.UtilRates),
		"legacy_util_rates", len(snap.LegacyUtilRates),
		"clearance_bands", len(snap.ClearanceBands),
		"rates", len(snap.Rates),
	)
	return snap, nil
}

func (l *Loader) loadDutyBands(ctx context.Context, snap *pricing.Snapshot) error {
	rows, err := l.refs.CustomsDutyBands(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("customs_duty_bands is empty")
	}

	bands := make([]pricing.DutyBand, 0, len(rows))
	for _, row := range rows {
		if row.RateEURCm3 == nil {
			return fmt.Errorf("customs_duty_bands row %d has null rate", row.ID)
		}
		bands = append(bands, pricing.DutyBand{
			Category:   pricing.AgeCategory(row.Category),
			VolumeFrom: row.VolumeFrom,
			VolumeTo:   row.VolumeTo,
			RateEURCm3: *row.RateEURCm3,
		})
	}
	snap.DutyBands = bands
	return nil
}

func (l *Loader) loadPercentBands(ctx context.Context, snap *pricing.Snapshot) error {
	rows, err := l.refs.PercentDutyBands(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("percent_duty_bands is empty")
	}

	bands := make([]pricing.PercentBand, 0, len(rows))
	for _, row := range rows {
		if row.Percent == nil || row.MinEURCm3 == nil {
			return fmt.Errorf("percent_duty_bands row %d has null columns", row.ID)
		}
		bands = append(bands, pricing.PercentBand{
			VolumeFrom: row.VolumeFrom,
			VolumeTo:   row.VolumeTo,
			Percent:    *row.Percent,
			MinEURCm3:  *row.MinEURCm3,
		})
	}
	snap.PercentBands = bands
	return nil
}

func (l *Loader) loadUtilRates(ctx context.Context, snap *pricing.Snapshot) error {
	rows, err := l.refs.UtilizationRates(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("utilization_rates is empty")
	}

	rates := make([]pricing.UtilRate, 0, len(rows))
	for _, row := range rows {
		if row.CoefThis == nil || row.CoefNext == nil || row.CoefAfter == nil {
			return fmt.Errorf("utilization_rates row %d has null coefficients", row.ID)
		}
		rates = append(rates, pricing.UtilRate{
			AgeFrom:     row.AgeFrom,
			AgeTo:       row.AgeTo,
			VolumeFrom:  row.VolumeFrom,
			VolumeTo:    row.VolumeTo,
			EngineClass: pricing.EngineClass(row.EngineClass),
			PowerFrom:   row.PowerFrom,
			PowerTo:     row.PowerTo,
			CoefThis:    *row.CoefThis,
			CoefNext:    *row.CoefNext,
			CoefAfter:   *row.CoefAfter,
		})
	}
	snap.UtilRates = rates
	return nil
}

func (l *Loader) loadLegacyUtilRates(ctx context.Context, snap *pricing.Snapshot) error {
	rows, err := l.refs.LegacyUtilizationRates(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("legacy_utilization_rates is empty")
	}

	rates := make([]pricing.LegacyUtilRate, 0, len(rows))
	for _, row := range rows {
		if row.CoefThis == nil || row.CoefNext == nil || row.CoefAfter == nil {
			return fmt.Errorf("legacy_utilization_rates row %d has null coefficients", row.ID)
		}
		rates = append(rates, pricing.LegacyUtilRate{
			AgeFrom:     row.AgeFrom,
			AgeTo:       row.AgeTo,
			VolumeFrom:  row.VolumeFrom,
			VolumeTo:    row.VolumeTo,
			EngineClass: pricing.EngineClass(row.EngineClass),
			CoefThis:    *row.CoefThis,
			CoefNext:    *row.CoefNext,
			CoefAfter:   *row.CoefAfter,
		})
	}
	snap.LegacyUtilRates = rates
	return nil
}

func (l *Loader) loadExchangeRates(ctx context.Context, snap *pricing.Snapshot) error {
	rows, err := l.refs.ExchangeRates(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("exchange_rates is empty")
	}

	rates := make(map[string]float64, len(rows))
	for _, row := range rows {
		if row.Rate == nil {
			return fmt.Errorf("exchange_rates row %s has null rate", row.Pair)
		}
		rates[row.Pair] = *row.Rate
	}

	for _, pair := range []string{pricing.PairUSDTKRW, pricing.PairUSDTRUB, pricing.PairEURRUB} {
		if rates[pair] <= 0 {
			return fmt.Errorf("exchange_rates missing pair %s", pair)
		}
	}
	snap.Rates = rates
	return nil
}

func (l *Loader) loadBankRate(ctx context.Context, snap *pricing.Snapshot) error {
	rows, err := l.refs.BankRates(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("bank_rates is empty")
	}

	row := rows[len(rows)-1]
	if row.KRWRUB == nil || *row.KRWRUB <= 0 {
		return fmt.Errorf("bank_rates row %d has null or non-positive rate", row.ID)
	}
	snap.BankKRWRUB = *row.KRWRUB
	return nil
}

func (l *Loader) loadClearanceBands(ctx context.Context, snap *pricing.Snapshot) error {
	rows, err := l.refs.ClearanceFeeBands(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("clearance_fee_bands is empty")
	}

	bands := make([]pricing.ClearanceBand, 0, len(rows))
	for _, row := range rows {
		if row.FeeRUB == nil {
			return fmt.Errorf("clearance_fee_bands row %d has null fee", row.ID)
		}
		bands = append(bands, pricing.ClearanceBand{
			PriceFrom: row.PriceFrom,
			PriceTo:   row.PriceTo,
			FeeRUB:    *row.FeeRUB,
		})
	}
	snap.ClearanceBands = bands
	return nil
}
