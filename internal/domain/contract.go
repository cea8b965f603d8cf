package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidTrial indica que un trial o contrato no cumple sus invariantes.
var ErrInvalidTrial = errors.New("invalid trial")

// AutoCallable es una nota autocancelable sobre un único subyacente, nominal 1.
//
// En cada barrier date, si el fixing está en o por encima de Barrier, la nota
// se cancela pagando 1 + cupón acumulado (CouponRate × meses desde
// AccrualStart / 12). Si llega a vencimiento sin cancelarse, paga
// 1 − max(Strike − S_T, 0) / Strike.
type AutoCallable struct {
	Ticker       string
	Ccy          string
	InitialSpot  float64
	Strike       float64
	Barrier      float64
	AccrualStart time.Time
	Maturity     time.Time
	BarrierDates []time.Time
	CouponRate   float64
}

// Validate comprueba las invariantes del contrato.
func (c AutoCallable) Validate() error {
	if c.Ticker == "" {
		return fmt.Errorf("contract: empty ticker: %w", ErrInvalidTrial)
	}
	if c.InitialSpot <= 0 || c.Strike <= 0 || c.Barrier <= 0 {
		return fmt.Errorf("contract %s: spot/strike/barrier must be positive: %w", c.Ticker, ErrInvalidTrial)
	}
	if err := validateBarrierDates(c.AccrualStart, c.BarrierDates); err != nil {
		return fmt.Errorf("contract %s: %w", c.Ticker, err)
	}
	if !c.Maturity.Equal(c.BarrierDates[len(c.BarrierDates)-1]) {
		return fmt.Errorf("contract %s: maturity must be the last barrier date: %w", c.Ticker, ErrInvalidTrial)
	}
	return nil
}

// CouponAccrued devuelve el cupón acumulado pagado si la nota se cancela en date.
func (c AutoCallable) CouponAccrued(date time.Time) float64 {
	return c.CouponRate * float64(monthsBetween(c.AccrualStart, date)) / 12.0
}

// Payoff devuelve el calendario de flujos de la nota dados los fixings del
// subyacente en cada barrier date (mismo orden y longitud que BarrierDates).
// El resultado termina en el primer knock-out o en vencimiento.
func (c AutoCallable) Payoff(fixings []float64) (CashflowSchedule, error) {
	if len(fixings) != len(c.BarrierDates) {
		return nil, fmt.Errorf("contract %s: %d fixings for %d barrier dates: %w",
			c.Ticker, len(fixings), len(c.BarrierDates), ErrInvalidTrial)
	}

	last := len(c.BarrierDates) - 1
	for i, date := range c.BarrierDates {
		s := fixings[i]
		if s >= c.Barrier {
			return CashflowSchedule{{Time: date, Amount: 1 + c.CouponAccrued(date)}}, nil
		}
		if i == last {
			redemption := 1 - math.Max(c.Strike-s, 0)/c.Strike
			return CashflowSchedule{{Time: date, Amount: redemption}}, nil
		}
	}
	return nil, fmt.Errorf("contract %s: no barrier dates: %w", c.Ticker, ErrInvalidTrial)
}

// PricingTrial es un trial del backtest: una fecha de pricing y sus parámetros.
type PricingTrial struct {
	Index        int
	Ticker       string
	PricingDate  time.Time
	BarrierDates []time.Time
	Spot         float64
	Strike       float64
	Barrier      float64
	CouponRate   float64
}

// Maturity es la última barrier date.
func (t PricingTrial) Maturity() time.Time {
	if len(t.BarrierDates) == 0 {
		return time.Time{}
	}
	return t.BarrierDates[len(t.BarrierDates)-1]
}

// Validate comprueba que las barrier dates sean estrictamente crecientes y
// posteriores a la fecha de pricing, y que los niveles sean positivos.
func (t PricingTrial) Validate() error {
	if t.Spot <= 0 || t.Strike <= 0 || t.Barrier <= 0 {
		return fmt.Errorf("trial %s: spot/strike/barrier must be positive: %w",
			t.PricingDate.Format(DateLayout), ErrInvalidTrial)
	}
	return validateBarrierDates(t.PricingDate, t.BarrierDates)
}

// Contract construye la definición del contrato para el pricer.
func (t PricingTrial) Contract(ccy string) AutoCallable {
	return AutoCallable{
		Ticker:       t.Ticker,
		Ccy:          ccy,
		InitialSpot:  t.Spot,
		Strike:       t.Strike,
		Barrier:      t.Barrier,
		AccrualStart: t.PricingDate,
		Maturity:     t.Maturity(),
		BarrierDates: append([]time.Time(nil), t.BarrierDates...),
		CouponRate:   t.CouponRate,
	}
}

func validateBarrierDates(start time.Time, dates []time.Time) error {
	if len(dates) == 0 {
		return fmt.Errorf("no barrier dates: %w", ErrInvalidTrial)
	}
	prev := start
	for _, d := range dates {
		if !d.After(prev) {
			return fmt.Errorf("barrier date %s not after %s: %w",
				d.Format(DateLayout), prev.Format(DateLayout), ErrInvalidTrial)
		}
		prev = d
	}
	return nil
}

// monthsBetween cuenta meses de calendario entre dos fechas (month-end a month-end).
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
