package pricing

// montecarlo.go — pricer Monte Carlo Black-Scholes para la nota autocancelable.
//
// Simula el subyacente solo en las barrier dates (GBM exacto con vol constante,
// drift r−q), evalúa AutoCallable.Payoff en cada path y descuenta cada flujo
// a la tasa plana. Mismo seed en cada llamada → números aleatorios comunes
// entre trials, igual que un pricer con SEED fijo.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"github.com/srujanra/apps-dash/internal/domain"
)

const (
	defaultPaths = 10_000
	// cada cuántos paths se comprueba la cancelación del contexto
	ctxCheckEvery = 1024
)

// MonteCarlo implementa ports.PricingEngine.
type MonteCarlo struct {
	dayCount   domain.DayCount
	antithetic bool
}

// NewMonteCarlo crea el pricer. dayCount convierte fechas en tiempos del modelo.
func NewMonteCarlo(dayCount domain.DayCount, antithetic bool) *MonteCarlo {
	return &MonteCarlo{dayCount: dayCount, antithetic: antithetic}
}

// Price devuelve el valor presente esperado de los flujos de la nota.
func (m *MonteCarlo) Price(ctx context.Context, contract domain.AutoCallable, market domain.MarketData) (float64, error) {
	if err := contract.Validate(); err != nil {
		return 0, fmt.Errorf("pricing.MonteCarlo: %w", err)
	}
	if market.Spot <= 0 {
		return 0, fmt.Errorf("pricing.MonteCarlo: spot must be positive, got %v", market.Spot)
	}
	if market.Vol < 0 {
		return 0, fmt.Errorf("pricing.MonteCarlo: negative vol %v", market.Vol)
	}

	paths := market.Paths
	if paths <= 0 {
		paths = defaultPaths
	}
	if m.antithetic && paths%2 == 1 {
		paths++
	}

	// Pasos entre observaciones: el drift sale de la curva forward,
	// log(F(t)/F(t_prev)) − σ²·dt/2.
	n := len(contract.BarrierDates)
	times := make([]float64, n+1)
	for i, d := range contract.BarrierDates {
		times[i+1] = m.dayCount.YearFraction(contract.AccrualStart, d)
	}
	curve := market.ForwardCurve(times...)
	drift := make([]float64, n)
	diff := make([]float64, n)
	for i := 0; i < n; i++ {
		dt := curve[i+1].T - curve[i].T
		drift[i] = math.Log(curve[i+1].Value/curve[i].Value) - 0.5*market.Vol*market.Vol*dt
		diff[i] = market.Vol * math.Sqrt(dt)
	}

	rng := rand.New(rand.NewPCG(market.Seed, market.Seed^0x9e3779b97f4a7c15))
	values := make([]float64, 0, paths)
	fixings := make([]float64, n)
	fixingsAnti := make([]float64, n)
	z := make([]float64, n)

	for p := 0; p < paths; {
		if p%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, fmt.Errorf("pricing.MonteCarlo: %w", err)
			}
		}

		for i := range z {
			z[i] = rng.NormFloat64()
		}

		v, err := m.pathValue(contract, market, drift, diff, z, fixings, 1)
		if err != nil {
			return 0, err
		}
		values = append(values, v)
		p++

		if m.antithetic && p < paths {
			v, err := m.pathValue(contract, market, drift, diff, z, fixingsAnti, -1)
			if err != nil {
				return 0, err
			}
			values = append(values, v)
			p++
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	slog.Debug("mc price",
		"ticker", contract.Ticker,
		"accrual_start", contract.AccrualStart.Format(domain.DateLayout),
		"price", mean,
		"std_err", std/math.Sqrt(float64(len(values))),
		"paths", len(values),
	)
	return mean, nil
}

// pathValue simula un path (sign = ±1 para antithetic) y devuelve el valor
// descontado de sus flujos.
func (m *MonteCarlo) pathValue(
	contract domain.AutoCallable,
	market domain.MarketData,
	drift, diff, z, fixings []float64,
	sign float64,
) (float64, error) {
	logS := math.Log(market.Spot)
	for i := range fixings {
		logS += drift[i] + diff[i]*sign*z[i]
		fixings[i] = math.Exp(logS)
	}

	// La nota se expresa en nominal 1 sobre InitialSpot: escalar los fixings
	// por si el spot de mercado difiere del InitialSpot del contrato.
	if market.Spot != contract.InitialSpot {
		scale := contract.InitialSpot / market.Spot
		for i := range fixings {
			fixings[i] *= scale
		}
	}

	flows, err := contract.Payoff(fixings)
	if err != nil {
		return 0, fmt.Errorf("pricing.MonteCarlo: %w", err)
	}

	var v float64
	for _, cf := range flows {
		t := m.dayCount.YearFraction(contract.AccrualStart, cf.Time)
		v += cf.Amount * market.Discount(t)
	}
	return v, nil
}
