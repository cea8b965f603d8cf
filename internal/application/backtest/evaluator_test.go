package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srujanra/apps-dash/internal/domain"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(domain.ACT36525, domain.EntryNegative, domain.DefaultIRRConfig())
}

func TestEvaluator_Knockout(t *testing.T) {
	pricing := date("2019-05-31")
	maturity := date("2020-05-29")
	ko := date("2019-08-30")

	ev := newTestEvaluator().Evaluate(pricing, maturity,
		domain.CashflowSchedule{{Time: ko, Amount: 1.0125}}, 0.98)

	res := ev.Result
	require.Equal(t, domain.StatusComputed, res.Status)
	assert.True(t, res.IsKnockout)

	tk := domain.ACT36525.YearFraction(pricing, ko)
	assert.InDelta(t, math.Pow(1.0125/0.98, 1/tk)-1, res.IRR, 1e-8)
	assert.InDelta(t, tk, res.Duration, 1e-12)
	assert.Equal(t, 0.98, res.Price)

	require.Len(t, ev.Raw.Amounts, 2)
	assert.Equal(t, []float64{-0.98, 1.0125}, ev.Raw.Amounts)
	assert.Equal(t, 0.0, ev.Raw.YearFracs[0])
	assert.Equal(t, pricing, ev.Raw.Times[0])
}

func TestEvaluator_HeldToMaturity(t *testing.T) {
	pricing := date("2019-05-31")
	maturity := date("2020-05-29")

	ev := newTestEvaluator().Evaluate(pricing, maturity,
		domain.CashflowSchedule{{Time: maturity, Amount: 0.75}}, 1.0)

	require.Equal(t, domain.StatusComputed, ev.Result.Status)
	assert.False(t, ev.Result.IsKnockout)
	assert.Less(t, ev.Result.IRR, 0.0)
}

func TestEvaluator_TotalLoss(t *testing.T) {
	pricing := date("2019-05-31")
	maturity := date("2020-05-29")

	ev := newTestEvaluator().Evaluate(pricing, maturity,
		domain.CashflowSchedule{{Time: maturity, Amount: 0}}, 0.97)

	require.Equal(t, domain.StatusComputed, ev.Result.Status)
	assert.Equal(t, domain.TotalLossIRR, ev.Result.IRR)
	assert.False(t, ev.Result.IsKnockout)
	assert.Equal(t, 0.0, ev.Result.Duration)
}

func TestEvaluator_TotalLoss_EntryPositive(t *testing.T) {
	pricing := date("2019-05-31")
	maturity := date("2020-05-29")

	ev := NewEvaluator(domain.ACT36525, domain.EntryPositive, domain.DefaultIRRConfig()).
		Evaluate(pricing, maturity, domain.CashflowSchedule{{Time: maturity, Amount: 0}}, 0.97)

	require.Equal(t, domain.StatusComputed, ev.Result.Status)
	assert.Equal(t, domain.TotalLossIRR, ev.Result.IRR)
	assert.Equal(t, 0.97, ev.Raw.Amounts[0])
}

func TestEvaluator_NegativePriceNoFlows(t *testing.T) {
	pricing := date("2019-05-31")
	maturity := date("2020-05-29")

	ev := newTestEvaluator().Evaluate(pricing, maturity,
		domain.CashflowSchedule{{Time: maturity, Amount: 0}}, -0.5)

	assert.Equal(t, domain.StatusUndefined, ev.Result.Status)
	assert.Contains(t, ev.Result.Reason, "irr undefined")
	assert.Equal(t, []float64{0.5, 0}, ev.Raw.Amounts)
}

func TestEvaluator_EntryPositiveSameIRR(t *testing.T) {
	pricing := date("2019-05-31")
	maturity := date("2020-05-29")
	flows := domain.CashflowSchedule{{Time: maturity, Amount: 1.05}}

	neg := newTestEvaluator().Evaluate(pricing, maturity, flows, 1.0)
	pos := NewEvaluator(domain.ACT36525, domain.EntryPositive, domain.DefaultIRRConfig()).
		Evaluate(pricing, maturity, flows, 1.0)

	require.Equal(t, domain.StatusComputed, pos.Result.Status)
	assert.InDelta(t, neg.Result.IRR, pos.Result.IRR, 1e-10)
	assert.Equal(t, []float64{1.0, -1.05}, pos.Raw.Amounts)
}

func TestEvaluator_Undefined(t *testing.T) {
	pricing := date("2019-05-31")
	maturity := date("2020-05-29")
	e := newTestEvaluator()

	cases := map[string]struct {
		schedule domain.CashflowSchedule
		price    float64
	}{
		"nan price":      {domain.CashflowSchedule{{Time: maturity, Amount: 1}}, math.NaN()},
		"empty schedule": {nil, 1},
		"before pricing": {domain.CashflowSchedule{{Time: date("2019-04-30"), Amount: 1}}, 1},
		"unsorted": {domain.CashflowSchedule{
			{Time: maturity, Amount: 1},
			{Time: date("2019-08-30"), Amount: 1},
		}, 1},
		"negative price, same sign": {domain.CashflowSchedule{{Time: maturity, Amount: 1}}, -0.5},
		"zero price and flows":      {domain.CashflowSchedule{{Time: maturity, Amount: 0}}, 0},
		"negative price, no flows":  {domain.CashflowSchedule{{Time: maturity, Amount: 0}}, -0.5},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ev := e.Evaluate(pricing, maturity, tc.schedule, tc.price)
			assert.Equal(t, domain.StatusUndefined, ev.Result.Status)
			assert.True(t, math.IsNaN(ev.Result.IRR))
			assert.NotEmpty(t, ev.Result.Reason)
		})
	}
}

func TestIsKnockout(t *testing.T) {
	maturity := date("2020-05-29")
	assert.True(t, isKnockout(domain.CashflowSchedule{
		{Time: date("2019-08-30"), Amount: 1.0125},
		{Time: maturity, Amount: 0},
	}, maturity))
	assert.False(t, isKnockout(domain.CashflowSchedule{{Time: maturity, Amount: 1}}, maturity))
	assert.False(t, isKnockout(domain.CashflowSchedule{{Time: maturity, Amount: 1}}, time.Time{}))
}

func TestWeightedLife(t *testing.T) {
	got := weightedLife([]float64{0.5, 1}, domain.CashflowSchedule{{Amount: 1}, {Amount: 3}})
	assert.InDelta(t, (0.5+3)/4, got, 1e-12)
	assert.Equal(t, 0.0, weightedLife([]float64{1}, domain.CashflowSchedule{{Amount: 0}}))
}
