package notify_test

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srujanra/apps-dash/internal/adapters/notify"
	"github.com/srujanra/apps-dash/internal/domain"
)

func day(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func computed(d string, irr float64, ko bool) domain.BacktestResult {
	return domain.BacktestResult{
		PricingDate: day(d),
		Status:      domain.StatusComputed,
		IRR:         irr,
		Price:       0.97,
		IsKnockout:  ko,
		Duration:    0.5,
	}
}

func makeReport() domain.Report {
	r := domain.Report{
		Ticker:        "SPX",
		TrialsPlanned: 4,
		Results: []domain.BacktestResult{
			computed("2019-05-31", 0.05, true),
			computed("2019-06-28", 0.10, false),
			domain.UndefinedResult(day("2019-07-31"), 0.95, "domain.SolveIRR: no sign change: irr undefined"),
			domain.SkippedResult(day("2019-08-30"), "spot: date not found"),
		},
	}
	r.Finalize()
	return r
}

func TestConsole_Notify_TriStateRows(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	err := n.Notify(context.Background(), makeReport())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2019-05-31")
	assert.Contains(t, out, "5.00%")
	assert.Contains(t, out, "10.00%")
	assert.Contains(t, out, "undefined")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "trials: 4  computed: 2  undefined: 1  skipped: 1")
	assert.NotContains(t, out, "RAW CASHFLOWS")
}

func TestConsole_Notify_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	err := n.Notify(context.Background(), domain.Report{Ticker: "SPX"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no trials")
}

func TestConsole_Notify_AllFailed(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	r := domain.Report{
		Ticker:        "SPX",
		TrialsPlanned: 1,
		Results:       []domain.BacktestResult{domain.SkippedResult(day("2019-05-31"), "x")},
	}
	r.Finalize()

	require.NoError(t, n.Notify(context.Background(), r))
	assert.Contains(t, buf.String(), "no trial produced an IRR")
}

func TestConsole_Notify_Raw(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	r := makeReport()
	r.Raw = []domain.TrialCashflows{{
		PricingDate: day("2019-05-31"),
		Times:       []time.Time{day("2019-05-31"), day("2019-08-30")},
		YearFracs:   []float64{0, 0.25},
		Amounts:     []float64{-0.97, 1.0125},
	}}

	require.NoError(t, n.Notify(context.Background(), r))
	out := buf.String()
	assert.Contains(t, out, "RAW CASHFLOWS")
	assert.Contains(t, out, "-0.970000")
	assert.Contains(t, out, "+1.012500")
}

func TestConsole_LongReasonTruncated(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	r := domain.Report{
		Ticker:        "SPX",
		TrialsPlanned: 1,
		Results:       []domain.BacktestResult{domain.SkippedResult(day("2019-05-31"), strings.Repeat("A", 80))},
	}
	r.Finalize()

	require.NoError(t, n.Notify(context.Background(), r))
	assert.Contains(t, buf.String(), "...")
}

func TestSummarize(t *testing.T) {
	s := notify.Summarize(makeReport())
	assert.InDelta(t, 0.075, s.Mean, 1e-12)
	assert.InDelta(t, 0.05, s.Min, 1e-12)
	assert.InDelta(t, 0.10, s.Max, 1e-12)
	assert.InDelta(t, 0.5, s.KnockoutRatio, 1e-12)
	assert.InDelta(t, 0.5, s.AvgDuration, 1e-12)
	assert.False(t, math.IsNaN(s.StdDev))
}

func TestSummarize_NoIRRs(t *testing.T) {
	s := notify.Summarize(domain.Report{})
	assert.True(t, math.IsNaN(s.Mean))
	assert.True(t, math.IsNaN(s.Median))
}

func TestConsole_PrintRuns(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	n.PrintRuns(nil)
	assert.Contains(t, buf.String(), "no stored runs")

	buf.Reset()
	n.PrintRuns([]domain.RunSummary{{
		ID: "abc-123", CreatedAt: time.Now(), Ticker: "SPX",
		TrialsPlanned: 48, Computed: 47, Skipped: 1, MeanIRR: 0.031,
	}})
	out := buf.String()
	assert.Contains(t, out, "abc-123")
	assert.Contains(t, out, "3.10%")
}
