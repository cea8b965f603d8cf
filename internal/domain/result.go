package domain

import (
	"math"
	"sort"
	"time"
)

// ResultStatus distingue resultados calculados de los que no tienen valor.
// Nunca se colapsa un trial fallido a 0 o NaN sin estado.
type ResultStatus string

const (
	StatusComputed  ResultStatus = "computed"
	StatusUndefined ResultStatus = "undefined" // error numérico: TIR sin solución
	StatusSkipped   ResultStatus = "skipped"   // error de datos: el trial no se pudo formar
)

// BacktestResult es el resultado de un trial. Inmutable una vez construido.
type BacktestResult struct {
	PricingDate time.Time
	Status      ResultStatus
	IRR         float64 // NaN salvo Status == StatusComputed
	Price       float64 // precio del pricer; NaN si no se llegó a pricear
	IsKnockout  bool
	Duration    float64 // vida media ponderada por flujos, en años
	Reason      string  // motivo si Status != StatusComputed
}

// HasIRR devuelve true si el trial tiene una TIR numérica válida.
func (r BacktestResult) HasIRR() bool {
	return r.Status == StatusComputed && !math.IsNaN(r.IRR)
}

// SkippedResult construye la fila de un trial que no se pudo formar.
func SkippedResult(pricingDate time.Time, reason string) BacktestResult {
	return BacktestResult{
		PricingDate: pricingDate,
		Status:      StatusSkipped,
		IRR:         math.NaN(),
		Price:       math.NaN(),
		Reason:      reason,
	}
}

// UndefinedResult construye la fila de un trial con TIR indefinida.
func UndefinedResult(pricingDate time.Time, price float64, reason string) BacktestResult {
	return BacktestResult{
		PricingDate: pricingDate,
		Status:      StatusUndefined,
		IRR:         math.NaN(),
		Price:       price,
		Reason:      reason,
	}
}

// TrialCashflows es el canal lateral de diagnóstico de un trial: los flujos
// crudos tal y como entraron en la TIR (incluido el flujo de entrada).
type TrialCashflows struct {
	PricingDate time.Time
	Times       []time.Time
	YearFracs   []float64
	Amounts     []float64
}

// Report agrupa los resultados ordenados por fecha de pricing, los flujos
// crudos y los conteos. TrialsPlanned == 0 significa que la serie histórica no
// alcanzaba para formar ni un trial; no es lo mismo que "todos fallaron".
type Report struct {
	Ticker        string
	Results       []BacktestResult
	Raw           []TrialCashflows
	TrialsPlanned int
	Computed      int
	Undefined     int
	Skipped       int
}

// Empty devuelve true si no se pudo formar ningún trial.
func (r Report) Empty() bool {
	return r.TrialsPlanned == 0
}

// AllFailed devuelve true si hubo trials pero ninguno produjo TIR.
func (r Report) AllFailed() bool {
	return r.TrialsPlanned > 0 && r.Computed == 0
}

// IRRs devuelve las TIR calculadas, en orden de fecha.
func (r Report) IRRs() []float64 {
	out := make([]float64, 0, r.Computed)
	for _, res := range r.Results {
		if res.HasIRR() {
			out = append(out, res.IRR)
		}
	}
	return out
}

// Finalize ordena resultados y flujos por fecha y recalcula los conteos.
func (r *Report) Finalize() {
	sort.SliceStable(r.Results, func(i, j int) bool {
		return r.Results[i].PricingDate.Before(r.Results[j].PricingDate)
	})
	sort.SliceStable(r.Raw, func(i, j int) bool {
		return r.Raw[i].PricingDate.Before(r.Raw[j].PricingDate)
	})
	r.Computed, r.Undefined, r.Skipped = 0, 0, 0
	for _, res := range r.Results {
		switch res.Status {
		case StatusComputed:
			r.Computed++
		case StatusUndefined:
			r.Undefined++
		case StatusSkipped:
			r.Skipped++
		}
	}
}
