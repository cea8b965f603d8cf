package replay_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srujanra/apps-dash/internal/adapters/replay"
	"github.com/srujanra/apps-dash/internal/domain"
)

func date(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

var barrierDates = []time.Time{date("2019-08-30"), date("2019-11-29"), date("2020-02-28"), date("2020-05-29")}

func contract() domain.AutoCallable {
	return domain.AutoCallable{
		Ticker:       "SPX",
		InitialSpot:  100,
		Strike:       80,
		Barrier:      100,
		AccrualStart: date("2019-05-31"),
		Maturity:     barrierDates[3],
		BarrierDates: barrierDates,
		CouponRate:   0.05,
	}
}

func series(t *testing.T, fixings ...float64) *domain.PriceSeries {
	t.Helper()
	dates := append([]time.Time{date("2019-05-31")}, barrierDates...)
	px := append([]float64{100}, fixings...)
	s, err := domain.NewPriceSeries(dates, map[string][]float64{"SPX": px})
	require.NoError(t, err)
	return s
}

func TestHistorical_Knockout(t *testing.T) {
	h := replay.NewHistorical(series(t, 95, 102, 90, 70), domain.LookupExact)
	flows, err := h.Cashflows(context.Background(), contract())
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, barrierDates[1], flows[0].Time)
	assert.InDelta(t, 1.025, flows[0].Amount, 1e-12)
}

func TestHistorical_Maturity(t *testing.T) {
	h := replay.NewHistorical(series(t, 95, 90, 85, 60), domain.LookupExact)
	flows, err := h.Cashflows(context.Background(), contract())
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, barrierDates[3], flows[0].Time)
	assert.InDelta(t, 0.75, flows[0].Amount, 1e-12)
}

func TestHistorical_MissingAfterKnockoutIsFine(t *testing.T) {
	h := replay.NewHistorical(series(t, 101, math.NaN(), math.NaN(), math.NaN()), domain.LookupExact)
	flows, err := h.Cashflows(context.Background(), contract())
	require.NoError(t, err)
	assert.Equal(t, barrierDates[0], flows[0].Time)
}

func TestHistorical_MissingFixing(t *testing.T) {
	h := replay.NewHistorical(series(t, 95, math.NaN(), 90, 90), domain.LookupExact)
	_, err := h.Cashflows(context.Background(), contract())
	assert.ErrorIs(t, err, domain.ErrDateNotFound)

	// nearest-before toma el fixing anterior (95)
	h = replay.NewHistorical(series(t, 95, math.NaN(), 90, 90), domain.LookupNearestBefore)
	flows, err := h.Cashflows(context.Background(), contract())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, flows[0].Amount, 1e-12)
}

func TestHistorical_UnknownTicker(t *testing.T) {
	c := contract()
	c.Ticker = "NDX"
	_, err := replay.NewHistorical(series(t, 95, 90, 90, 90), domain.LookupExact).Cashflows(context.Background(), c)
	assert.ErrorIs(t, err, domain.ErrUnknownTicker)
}
