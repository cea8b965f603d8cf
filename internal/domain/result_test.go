package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Finalize(t *testing.T) {
	r := Report{
		TrialsPlanned: 3,
		Results: []BacktestResult{
			SkippedResult(d("2019-07-31"), "spot"),
			{PricingDate: d("2019-05-31"), Status: StatusComputed, IRR: 0.04},
			UndefinedResult(d("2019-06-28"), 0.99, "no sign change"),
		},
		Raw: []TrialCashflows{{PricingDate: d("2019-06-28")}, {PricingDate: d("2019-05-31")}},
	}
	r.Finalize()

	require.Len(t, r.Results, 3)
	assert.Equal(t, d("2019-05-31"), r.Results[0].PricingDate)
	assert.Equal(t, d("2019-07-31"), r.Results[2].PricingDate)
	assert.Equal(t, d("2019-05-31"), r.Raw[0].PricingDate)
	assert.Equal(t, 1, r.Computed)
	assert.Equal(t, 1, r.Undefined)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, []float64{0.04}, r.IRRs())
	assert.False(t, r.Empty())
	assert.False(t, r.AllFailed())
}

func TestReport_EmptyVsAllFailed(t *testing.T) {
	empty := Report{}
	assert.True(t, empty.Empty())
	assert.False(t, empty.AllFailed())

	failed := Report{TrialsPlanned: 1, Results: []BacktestResult{SkippedResult(d("2019-05-31"), "x")}}
	failed.Finalize()
	assert.False(t, failed.Empty())
	assert.True(t, failed.AllFailed())
	assert.Empty(t, failed.IRRs())
}

func TestResultConstructors(t *testing.T) {
	s := SkippedResult(d("2019-05-31"), "missing")
	assert.Equal(t, StatusSkipped, s.Status)
	assert.True(t, math.IsNaN(s.IRR))
	assert.True(t, math.IsNaN(s.Price))
	assert.False(t, s.HasIRR())

	u := UndefinedResult(d("2019-05-31"), 0.98, "nope")
	assert.Equal(t, StatusUndefined, u.Status)
	assert.Equal(t, 0.98, u.Price)
	assert.False(t, u.HasIRR())
}

func TestCashflowSchedule(t *testing.T) {
	s := CashflowSchedule{
		{Time: d("2019-08-30"), Amount: 0},
		{Time: d("2019-08-30"), Amount: 1.0125},
	}
	require.NoError(t, s.Validate())
	assert.InDelta(t, 1.0125, s.Total(), 1e-12)
	assert.False(t, s.IsZero())
	assert.True(t, CashflowSchedule{{Time: d("2019-08-30")}}.IsZero())

	bad := CashflowSchedule{{Time: d("2019-11-29")}, {Time: d("2019-08-30")}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTrial)
}

func TestSignConvention(t *testing.T) {
	entry, sign := EntryNegative.Apply(0.97)
	assert.Equal(t, -0.97, entry)
	assert.Equal(t, 1.0, sign)

	entry, sign = EntryPositive.Apply(0.97)
	assert.Equal(t, 0.97, entry)
	assert.Equal(t, -1.0, sign)

	c, err := ParseSignConvention("")
	require.NoError(t, err)
	assert.Equal(t, EntryNegative, c)
	_, err = ParseSignConvention("both")
	assert.Error(t, err)
}

func TestMarketData_Forward(t *testing.T) {
	m := MarketData{Spot: 100, Rate: 0.03, DivYield: 0.02}
	assert.InDelta(t, 100*math.Exp(0.01*2), m.Forward(2), 1e-12)
	assert.InDelta(t, math.Exp(-0.03), m.Discount(1), 1e-12)

	curve := m.ForwardCurve(0, 2)
	require.Len(t, curve, 2)
	assert.Equal(t, 100.0, curve[0].Value)
	assert.Equal(t, 2.0, curve[1].T)
	assert.InDelta(t, m.Forward(2), curve[1].Value, 1e-12)

}
