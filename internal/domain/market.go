package domain

import "math"

// MarketData son los parámetros de mercado que el pricer necesita para un trial.
// Se usan tasas y dividendos constantes para todas las fechas históricas.
type MarketData struct {
	Ticker   string
	Spot     float64
	Rate     float64 // tasa libre de riesgo continua
	DivYield float64 // dividend yield continuo
	Vol      float64 // volatilidad anual constante
	Paths    int
	Seed     uint64
}

// CurvePoint es un punto (tiempo en años, valor) de una curva.
type CurvePoint struct {
	T     float64
	Value float64
}

// Forward devuelve el precio forward en t: S·exp((r−q)·t).
func (m MarketData) Forward(t float64) float64 {
	return m.Spot * math.Exp((m.Rate-m.DivYield)*t)
}

// ForwardCurve devuelve la curva forward en los tiempos dados.
// Con times = {0, 2} es la curva de dos puntos que se entrega al pricer.
func (m MarketData) ForwardCurve(times ...float64) []CurvePoint {
	out := make([]CurvePoint, len(times))
	for i, t := range times {
		out[i] = CurvePoint{T: t, Value: m.Forward(t)}
	}
	return out
}

// Discount devuelve el factor de descuento continuo a tiempo t.
func (m MarketData) Discount(t float64) float64 {
	return math.Exp(-m.Rate * t)
}
