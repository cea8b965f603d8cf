package domain

import "time"

// RunParams son los parámetros con los que se generó un backtest.
// Se persisten junto al reporte para poder reproducirlo.
type RunParams struct {
	Ticker       string
	Start        time.Time
	End          time.Time
	PeriodMonths int
	TenorMonths  int
	StrikePct    float64
	BarrierPct   float64
	CouponRate   float64
	Rate         float64
	DivYield     float64
	Vol          float64
	Paths        int
	DayCount     DayCount
	Sign         SignConvention
	Lookup       LookupPolicy
}

// BacktestRun es un backtest persistido.
type BacktestRun struct {
	ID        string
	CreatedAt time.Time
	Params    RunParams
	Report    Report
}

// RunSummary es la vista ligera de un run para listados.
type RunSummary struct {
	ID            string
	CreatedAt     time.Time
	Ticker        string
	TrialsPlanned int
	Computed      int
	Undefined     int
	Skipped       int
	MeanIRR       float64 // NaN si no hay TIRs calculadas
}
