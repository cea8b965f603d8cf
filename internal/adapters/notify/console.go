package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"

	"github.com/srujanra/apps-dash/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out io.Writer
	raw bool
}

// NewConsole crea un notificador que escribe a stdout.
// raw=true imprime también los flujos crudos de cada trial.
func NewConsole(raw bool) *Console {
	return &Console{out: os.Stdout, raw: raw}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, raw bool) *Console {
	return &Console{out: w, raw: raw}
}

// Notify imprime la tabla de resultados, el resumen y opcionalmente los flujos.
func (c *Console) Notify(_ context.Context, report domain.Report) error {
	if report.Empty() {
		fmt.Fprintf(c.out, "[%s] %s: no trials, price history too short for the configured tenor\n",
			time.Now().Format("15:04:05"), report.Ticker)
		return nil
	}

	c.printTable(report)
	c.printSummary(report)
	if c.raw {
		c.printRaw(report)
	}
	return nil
}

// PrintRuns imprime el listado de runs persistidos.
func (c *Console) PrintRuns(runs []domain.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "no stored runs")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Created", "Ticker", "Trials", "OK", "Undef", "Skip", "Mean IRR")
	for _, r := range runs {
		table.Append(
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Ticker,
			fmt.Sprintf("%d", r.TrialsPlanned),
			fmt.Sprintf("%d", r.Computed),
			fmt.Sprintf("%d", r.Undefined),
			fmt.Sprintf("%d", r.Skipped),
			pctLabel(r.MeanIRR),
		)
	}
	table.Render()
}

// PrintRun imprime los parámetros de un run persistido y su reporte.
func (c *Console) PrintRun(ctx context.Context, run domain.BacktestRun) error {
	p := run.Params
	fmt.Fprintf(c.out, "\n=== RUN %s (%s) ===\n", run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(c.out, "  %s  %s → %s  obs every %dm, tenor %dm\n",
		p.Ticker, dateLabel(p.Start), dateLabel(p.End), p.PeriodMonths, p.TenorMonths)
	fmt.Fprintf(c.out, "  strike %.0f%%  barrier %.0f%%  coupon %.2f%%\n",
		p.StrikePct*100, p.BarrierPct*100, p.CouponRate*100)
	fmt.Fprintf(c.out, "  r=%.2f%%  q=%.2f%%  vol=%.0f%%  paths=%d  %s  %s  lookup=%s\n\n",
		p.Rate*100, p.DivYield*100, p.Vol*100, p.Paths, p.DayCount, p.Sign, p.Lookup)
	return c.Notify(ctx, run.Report)
}

// printTable imprime una fila por trial. Los trials sin TIR se muestran con su
// estado, nunca como 0.
func (c *Console) printTable(report domain.Report) {
	fmt.Fprintf(c.out, "\n[%s] %s backtest: %d trials\n",
		time.Now().Format("15:04:05"), report.Ticker, report.TrialsPlanned)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pricing date", "Status", "IRR", "Price", "KO", "Duration", "Note")

	for i, r := range report.Results {
		irr := "n/a"
		if r.HasIRR() {
			irr = pctLabel(r.IRR)
		}
		if r.Status == domain.StatusSkipped {
			irr = "-"
		}

		price := "-"
		if !math.IsNaN(r.Price) {
			price = fmt.Sprintf("%.4f", r.Price)
		}

		ko, dur := "-", "-"
		if r.Status != domain.StatusSkipped {
			ko = "no"
			if r.IsKnockout {
				ko = "yes"
			}
			dur = fmt.Sprintf("%.2fy", r.Duration)
		}

		table.Append(
			fmt.Sprintf("%d", i+1),
			r.PricingDate.Format(domain.DateLayout),
			string(r.Status),
			irr,
			price,
			ko,
			dur,
			truncate(r.Reason, 40),
		)
	}

	table.Render()
}

// printSummary imprime el resumen estadístico de las TIR calculadas.
func (c *Console) printSummary(report domain.Report) {
	fmt.Fprintf(c.out, "\n=== SUMMARY %s ===\n", report.Ticker)
	fmt.Fprintf(c.out, "  trials: %d  computed: %d  undefined: %d  skipped: %d\n",
		report.TrialsPlanned, report.Computed, report.Undefined, report.Skipped)

	if report.AllFailed() {
		fmt.Fprintf(c.out, "  ⚠ no trial produced an IRR\n\n")
		return
	}

	s := Summarize(report)
	fmt.Fprintf(c.out, "  ─────────────────────────────────────────────\n")
	fmt.Fprintf(c.out, "  IRR mean %s  std %s  median %s\n",
		pctLabel(s.Mean), pctLabel(s.StdDev), pctLabel(s.Median))
	fmt.Fprintf(c.out, "  IRR p05 %s  p95 %s  min %s  max %s\n",
		pctLabel(s.P05), pctLabel(s.P95), pctLabel(s.Min), pctLabel(s.Max))
	fmt.Fprintf(c.out, "  knock-out ratio %.1f%%  avg duration %.2fy\n\n",
		s.KnockoutRatio*100, s.AvgDuration)
}

// printRaw imprime los vectores de flujos que entraron en cada TIR.
func (c *Console) printRaw(report domain.Report) {
	fmt.Fprintln(c.out, "=== RAW CASHFLOWS ===")
	for _, raw := range report.Raw {
		parts := make([]string, len(raw.Amounts))
		for i := range raw.Amounts {
			parts[i] = fmt.Sprintf("%s %.4fy %+.6f",
				raw.Times[i].Format(domain.DateLayout), raw.YearFracs[i], raw.Amounts[i])
		}
		fmt.Fprintf(c.out, "  %s: %s\n", raw.PricingDate.Format(domain.DateLayout), strings.Join(parts, " | "))
	}
	fmt.Fprintln(c.out)
}

// Summary son las estadísticas de las TIR calculadas de un reporte.
type Summary struct {
	Mean, StdDev, Median float64
	P05, P95             float64
	Min, Max             float64
	KnockoutRatio        float64 // entre trials calculados
	AvgDuration          float64
}

// Summarize calcula el resumen. Con menos de dos TIR la desviación es NaN.
func Summarize(report domain.Report) Summary {
	irrs := report.IRRs()
	nan := math.NaN()
	s := Summary{Mean: nan, StdDev: nan, Median: nan, P05: nan, P95: nan, Min: nan, Max: nan}
	if len(irrs) == 0 {
		return s
	}

	sorted := append([]float64(nil), irrs...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P05 = stat.Quantile(0.05, stat.Empirical, sorted, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]

	var ko int
	durations := make([]float64, 0, len(irrs))
	for _, r := range report.Results {
		if !r.HasIRR() {
			continue
		}
		if r.IsKnockout {
			ko++
		}
		durations = append(durations, r.Duration)
	}
	s.KnockoutRatio = float64(ko) / float64(len(durations))
	s.AvgDuration = stat.Mean(durations, nil)
	return s
}

func pctLabel(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func dateLabel(t time.Time) string {
	if t.IsZero() {
		return "…"
	}
	return t.Format(domain.DateLayout)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
