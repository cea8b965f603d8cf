package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/srujanra/apps-dash/internal/domain"
)

// Evaluator convierte el calendario de flujos de un trial y su precio de
// referencia en TIR + diagnósticos de knock-out y duración.
type Evaluator struct {
	DayCount domain.DayCount
	Sign     domain.SignConvention
	Solver   domain.IRRConfig
}

// NewEvaluator crea un evaluador con las convenciones dadas.
func NewEvaluator(dc domain.DayCount, sign domain.SignConvention, solver domain.IRRConfig) *Evaluator {
	return &Evaluator{DayCount: dc, Sign: sign, Solver: solver}
}

// Evaluation es la salida del evaluador: el resultado del trial y el vector
// de flujos que entró en la TIR (canal lateral de diagnóstico).
type Evaluation struct {
	Result domain.BacktestResult
	Raw    domain.TrialCashflows
}

// Evaluate calcula la TIR del trial. Nunca devuelve error: los fallos
// numéricos y de datos quedan como StatusUndefined en el resultado.
func (e *Evaluator) Evaluate(
	pricingDate, maturity time.Time,
	schedule domain.CashflowSchedule,
	referencePrice float64,
) Evaluation {
	raw := domain.TrialCashflows{PricingDate: pricingDate}

	if math.IsNaN(referencePrice) || math.IsInf(referencePrice, 0) {
		return Evaluation{
			Result: domain.UndefinedResult(pricingDate, referencePrice, "reference price is not finite"),
			Raw:    raw,
		}
	}
	if len(schedule) == 0 {
		return Evaluation{
			Result: domain.UndefinedResult(pricingDate, referencePrice, "empty cashflow schedule"),
			Raw:    raw,
		}
	}
	if err := schedule.Validate(); err != nil {
		return Evaluation{
			Result: domain.UndefinedResult(pricingDate, referencePrice, err.Error()),
			Raw:    raw,
		}
	}

	// Fracciones de año respecto a la fecha de pricing.
	yrs := make([]float64, len(schedule))
	for i, cf := range schedule {
		if cf.Time.Before(pricingDate) {
			return Evaluation{
				Result: domain.UndefinedResult(pricingDate, referencePrice,
					fmt.Sprintf("cashflow at %s before pricing date", cf.Time.Format(domain.DateLayout))),
				Raw: raw,
			}
		}
		yrs[i] = e.DayCount.YearFraction(pricingDate, cf.Time)
	}

	// Vector completo con el flujo sintético de entrada en t=0.
	entry, flowSign := e.Sign.Apply(referencePrice)
	raw.Times = append(raw.Times, pricingDate)
	raw.YearFracs = append(raw.YearFracs, 0)
	raw.Amounts = append(raw.Amounts, entry)
	for i, cf := range schedule {
		raw.Times = append(raw.Times, cf.Time)
		raw.YearFracs = append(raw.YearFracs, yrs[i])
		raw.Amounts = append(raw.Amounts, flowSign*cf.Amount)
	}

	// Knock-out y duración salen del calendario, no de la TIR.
	isKO := isKnockout(schedule, maturity)
	duration := weightedLife(yrs, schedule)

	// Sin flujos realizados solo hay pérdida total si la entrada costó algo;
	// un precio nulo o negativo no tiene TIR.
	if schedule.IsZero() {
		if referencePrice > 0 {
			return Evaluation{
				Result: domain.BacktestResult{
					PricingDate: pricingDate,
					Status:      domain.StatusComputed,
					IRR:         domain.TotalLossIRR,
					Price:       referencePrice,
					IsKnockout:  isKO,
					Duration:    duration,
				},
				Raw: raw,
			}
		}
		res := domain.UndefinedResult(pricingDate, referencePrice,
			fmt.Sprintf("no realized cashflows and non-positive price %.6f: %v", referencePrice, domain.ErrIRRUndefined))
		return Evaluation{Result: res, Raw: raw}
	}

	irr, err := domain.SolveIRR(raw.YearFracs, raw.Amounts, e.Solver)
	if err != nil {
		reason := err.Error()
		if !errors.Is(err, domain.ErrIRRUndefined) {
			reason = "solver: " + reason
		}
		res := domain.UndefinedResult(pricingDate, referencePrice, reason)
		res.IsKnockout = isKO
		res.Duration = duration
		return Evaluation{Result: res, Raw: raw}
	}

	return Evaluation{
		Result: domain.BacktestResult{
			PricingDate: pricingDate,
			Status:      domain.StatusComputed,
			IRR:         irr,
			Price:       referencePrice,
			IsKnockout:  isKO,
			Duration:    duration,
		},
		Raw: raw,
	}
}

// isKnockout devuelve true si el último flujo no nulo cae antes del vencimiento
// nominal: la nota se canceló anticipadamente.
func isKnockout(schedule domain.CashflowSchedule, maturity time.Time) bool {
	if maturity.IsZero() {
		return false
	}
	for i := len(schedule) - 1; i >= 0; i-- {
		if schedule[i].Amount != 0 {
			return schedule[i].Time.Before(maturity)
		}
	}
	return false
}

// weightedLife devuelve la vida media ponderada por flujos positivos
// (Σ t·cf / Σ cf). Si no hay flujos positivos devuelve 0.
func weightedLife(yrs []float64, schedule domain.CashflowSchedule) float64 {
	w := make([]float64, len(schedule))
	for i, cf := range schedule {
		if cf.Amount > 0 {
			w[i] = cf.Amount
		}
	}
	total := floats.Sum(w)
	if total == 0 {
		return 0
	}
	return floats.Dot(yrs, w) / total
}
