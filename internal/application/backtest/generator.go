package backtest

// generator.go — enumera los trials del backtest a partir de la serie histórica.
//
// Para el trial i:
//   - pricing date  = monthEnds[i]
//   - barrier dates = monthEnds[i+p], monthEnds[i+2p], …, monthEnds[i+tenor]
//
// Con p=3 y tenor=12 cada trial tiene 4 barrier dates y hay
// len(monthEnds) − 12 trials.

import (
	"fmt"
	"time"

	"github.com/srujanra/apps-dash/internal/domain"
)

// GeneratorConfig son los parámetros fijos de calendario y contrato.
type GeneratorConfig struct {
	Ticker       string
	Ccy          string
	PeriodMonths int       // meses entre observaciones (default 3)
	TenorMonths  int       // vida total en meses (default 12)
	Start        time.Time // inicio del rango de month-ends (zero = inicio de la serie)
	End          time.Time // fin del rango (zero = fin de la serie)
	StrikePct    float64   // strike como % del spot (default 0.8)
	BarrierPct   float64   // barrera como % del spot (default 1.0)
	CouponRate   float64   // cupón anual (default 0.05)
	Lookup       domain.LookupPolicy
	Calendar     domain.Calendar
}

// DefaultGeneratorConfig devuelve los parámetros de la nota de referencia.
func DefaultGeneratorConfig(ticker string) GeneratorConfig {
	return GeneratorConfig{
		Ticker:       ticker,
		Ccy:          "USD",
		PeriodMonths: 3,
		TenorMonths:  12,
		StrikePct:    0.8,
		BarrierPct:   1.0,
		CouponRate:   0.05,
		Lookup:       domain.LookupExact,
	}
}

// Validate comprueba la configuración del generador.
func (c GeneratorConfig) Validate() error {
	if c.Ticker == "" {
		return fmt.Errorf("backtest.GeneratorConfig: empty ticker")
	}
	if c.PeriodMonths <= 0 || c.TenorMonths <= 0 {
		return fmt.Errorf("backtest.GeneratorConfig: period (%d) and tenor (%d) must be positive",
			c.PeriodMonths, c.TenorMonths)
	}
	if c.TenorMonths%c.PeriodMonths != 0 {
		return fmt.Errorf("backtest.GeneratorConfig: tenor %d is not a multiple of period %d",
			c.TenorMonths, c.PeriodMonths)
	}
	if c.StrikePct <= 0 || c.BarrierPct <= 0 {
		return fmt.Errorf("backtest.GeneratorConfig: strike and barrier pct must be positive")
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start) {
		return fmt.Errorf("backtest.GeneratorConfig: end %s before start %s",
			c.End.Format(domain.DateLayout), c.Start.Format(domain.DateLayout))
	}
	return nil
}

// Periods devuelve el número de observaciones por trial.
func (c GeneratorConfig) Periods() int {
	return c.TenorMonths / c.PeriodMonths
}

// TrialPlan es un trial generado. Si Err != nil el trial no se pudo formar
// (por ejemplo, la fecha de pricing no está en la serie) y se reporta como skipped.
type TrialPlan struct {
	Trial domain.PricingTrial
	Err   error
}

// MonthEnds devuelve los month-ends hábiles del rango configurado, acotado
// por el rango de la serie.
func MonthEnds(series *domain.PriceSeries, cfg GeneratorConfig) []time.Time {
	first, last, ok := series.Range()
	if !ok {
		return nil
	}
	from, to := first, last
	if !cfg.Start.IsZero() && cfg.Start.After(from) {
		from = cfg.Start
	}
	if !cfg.End.IsZero() && cfg.End.Before(to) {
		to = cfg.End
	}
	return cfg.Calendar.BusinessMonthEnds(from, to)
}

// GenerateTrials enumera los trials. Una serie vacía o demasiado corta
// devuelve cero trials sin error.
func GenerateTrials(series *domain.PriceSeries, cfg GeneratorConfig) ([]TrialPlan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return GenerateFromMonthEnds(MonthEnds(series, cfg), series, cfg), nil
}

// GenerateFromMonthEnds enumera los trials sobre una lista de month-ends ya calculada.
func GenerateFromMonthEnds(monthEnds []time.Time, series *domain.PriceSeries, cfg GeneratorConfig) []TrialPlan {
	n := len(monthEnds) - cfg.TenorMonths
	if n <= 0 {
		return nil
	}

	plans := make([]TrialPlan, 0, n)
	for i := 0; i < n; i++ {
		pricingDate := monthEnds[i]
		barrierDates := make([]time.Time, 0, cfg.Periods())
		for k := cfg.PeriodMonths; k <= cfg.TenorMonths; k += cfg.PeriodMonths {
			barrierDates = append(barrierDates, monthEnds[i+k])
		}

		trial := domain.PricingTrial{
			Index:        i,
			Ticker:       cfg.Ticker,
			PricingDate:  pricingDate,
			BarrierDates: barrierDates,
			CouponRate:   cfg.CouponRate,
		}

		spot, err := series.Lookup(cfg.Ticker, pricingDate, cfg.Lookup)
		if err != nil {
			plans = append(plans, TrialPlan{Trial: trial, Err: fmt.Errorf("spot: %w", err)})
			continue
		}
		trial.Spot = spot
		trial.Strike = spot * cfg.StrikePct
		trial.Barrier = spot * cfg.BarrierPct

		if err := trial.Validate(); err != nil {
			plans = append(plans, TrialPlan{Trial: trial, Err: err})
			continue
		}
		plans = append(plans, TrialPlan{Trial: trial})
	}
	return plans
}
