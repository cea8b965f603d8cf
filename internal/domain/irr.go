package domain

// irr.go — resolución de la TIR: r tal que Σ a_i·(1+r)^(−t_i) = 0.
//
// Newton con salvaguarda de bisección sobre un bracket (−1, hi]. Si no hay
// cambio de signo no se devuelve un número inventado: ErrIRRUndefined.

import (
	"errors"
	"fmt"
	"math"
)

// ErrIRRUndefined indica que la TIR no existe o no se pudo acotar.
var ErrIRRUndefined = errors.New("irr undefined")

// TotalLossIRR es el valor documentado para pérdida total: todos los flujos
// realizados son cero y la entrada fue un coste para el inversor.
const TotalLossIRR = -1.0

const (
	irrLowerBound   = -1 + 1e-9
	irrInitialUpper = 1.0
)

// IRRConfig controla la convergencia del solver.
type IRRConfig struct {
	Tolerance float64 // tolerancia en r (default 1e-10)
	MaxIter   int     // iteraciones máximas (default 200)
	MaxRate   float64 // límite superior del bracket (default 1e6)
}

// DefaultIRRConfig devuelve la configuración por defecto del solver.
func DefaultIRRConfig() IRRConfig {
	return IRRConfig{Tolerance: 1e-10, MaxIter: 200, MaxRate: 1e6}
}

func (c IRRConfig) withDefaults() IRRConfig {
	d := DefaultIRRConfig()
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	if c.MaxRate <= 0 {
		c.MaxRate = d.MaxRate
	}
	return c
}

// NPV devuelve Σ a_i·(1+r)^(−t_i).
func NPV(rate float64, times, amounts []float64) float64 {
	v, _ := npvAndDeriv(rate, times, amounts)
	return v
}

// SolveIRR devuelve la TIR anual del vector (times en años, amounts).
// El vector debe incluir el flujo de entrada en t=0.
func SolveIRR(times, amounts []float64, cfg IRRConfig) (float64, error) {
	if len(times) != len(amounts) {
		return math.NaN(), fmt.Errorf("domain.SolveIRR: %d times for %d amounts", len(times), len(amounts))
	}
	if len(amounts) == 0 {
		return math.NaN(), fmt.Errorf("domain.SolveIRR: empty cashflows: %w", ErrIRRUndefined)
	}
	cfg = cfg.withDefaults()

	var pos, neg bool
	for _, a := range amounts {
		if a > 0 {
			pos = true
		} else if a < 0 {
			neg = true
		}
	}

	// Pérdida total: solo hay un desembolso de entrada y nada vuelve.
	if neg && !pos && hasEntryOnly(times, amounts) {
		return TotalLossIRR, nil
	}
	if !pos || !neg {
		return math.NaN(), fmt.Errorf("domain.SolveIRR: no sign change: %w", ErrIRRUndefined)
	}

	lo, hi := irrLowerBound, irrInitialUpper
	fLo := NPV(lo, times, amounts)
	fHi := NPV(hi, times, amounts)
	for sameSign(fLo, fHi) {
		if hi >= cfg.MaxRate {
			return math.NaN(), fmt.Errorf("domain.SolveIRR: no root below %.0f: %w", cfg.MaxRate, ErrIRRUndefined)
		}
		hi = math.Min(hi*4, cfg.MaxRate)
		fHi = NPV(hi, times, amounts)
	}
	if fLo == 0 {
		return lo, nil
	}
	if fHi == 0 {
		return hi, nil
	}

	r := 0.1
	if r <= lo || r >= hi {
		r = (lo + hi) / 2
	}
	for iter := 0; iter < cfg.MaxIter; iter++ {
		f, df := npvAndDeriv(r, times, amounts)
		if f == 0 {
			return r, nil
		}
		if sameSign(f, fLo) {
			lo, fLo = r, f
		} else {
			hi = r
		}

		if hi-lo < cfg.Tolerance {
			return (lo + hi) / 2, nil
		}

		next := r - f/df
		if df == 0 || math.IsNaN(next) || next <= lo || next >= hi {
			next = (lo + hi) / 2 // fuera del bracket → bisección
		}
		if math.Abs(next-r) < cfg.Tolerance {
			return next, nil
		}
		r = next
	}

	return math.NaN(), fmt.Errorf("domain.SolveIRR: did not converge after %d iterations: %w", cfg.MaxIter, ErrIRRUndefined)
}

// npvAndDeriv devuelve (NPV, dNPV/dr).
//
//	NPV    = Σ a_i·(1+r)^(−t_i)
//	dNPV/dr = Σ −t_i·a_i·(1+r)^(−t_i−1)
func npvAndDeriv(rate float64, times, amounts []float64) (float64, float64) {
	base := 1 + rate
	var v, d float64
	for i, a := range amounts {
		t := times[i]
		disc := math.Pow(base, -t)
		v += a * disc
		d += -t * a * disc / base
	}
	return v, d
}

// hasEntryOnly devuelve true si todos los flujos no nulos están en t=0.
func hasEntryOnly(times, amounts []float64) bool {
	entry := false
	for i, a := range amounts {
		if a == 0 {
			continue
		}
		if times[i] != 0 {
			return false
		}
		entry = true
	}
	return entry
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
