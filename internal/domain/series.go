package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout es el formato de fecha usado en CSV, logs y storage.
const DateLayout = "2006-01-02"

var (
	// ErrUnsortedSeries indica fechas no estrictamente crecientes o duplicadas.
	ErrUnsortedSeries = errors.New("price series dates must be strictly increasing")
	// ErrDateNotFound indica que la fecha pedida no está en el índice histórico.
	ErrDateNotFound = errors.New("date not found in price series")
	// ErrUnknownTicker indica que la serie no tiene columna para el ticker.
	ErrUnknownTicker = errors.New("unknown ticker")
)

// LookupPolicy decide qué hacer cuando la fecha no existe exactamente en la serie.
type LookupPolicy string

const (
	// LookupExact falla si la fecha no está en el índice.
	LookupExact LookupPolicy = "exact"
	// LookupNearestBefore usa la última observación anterior o igual a la fecha.
	LookupNearestBefore LookupPolicy = "nearest-before"
)

// ParseLookupPolicy valida la política configurada. Vacío = exact.
func ParseLookupPolicy(s string) (LookupPolicy, error) {
	switch LookupPolicy(s) {
	case "", LookupExact:
		return LookupExact, nil
	case LookupNearestBefore:
		return LookupNearestBefore, nil
	default:
		return "", fmt.Errorf("domain.ParseLookupPolicy: unknown policy %q", s)
	}
}

// PriceSeries es una serie histórica de precios indexada por fecha.
// Es de solo lectura una vez construida: se comparte entre todos los trials.
type PriceSeries struct {
	dates  []time.Time
	prices map[string][]float64 // ticker → precio por índice de fecha (NaN = sin dato)
}

// NewPriceSeries construye la serie validando que las fechas sean estrictamente
// crecientes. Cada slice de precios debe tener len(dates) elementos.
func NewPriceSeries(dates []time.Time, prices map[string][]float64) (*PriceSeries, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("domain.NewPriceSeries: %s after %s: %w",
				dates[i].Format(DateLayout), dates[i-1].Format(DateLayout), ErrUnsortedSeries)
		}
	}
	cp := make(map[string][]float64, len(prices))
	for ticker, px := range prices {
		if len(px) != len(dates) {
			return nil, fmt.Errorf("domain.NewPriceSeries: ticker %s has %d prices for %d dates",
				ticker, len(px), len(dates))
		}
		cp[ticker] = append([]float64(nil), px...)
	}
	ds := make([]time.Time, len(dates))
	for i, d := range dates {
		ds[i] = truncateDay(d)
	}
	return &PriceSeries{dates: ds, prices: cp}, nil
}

// Len devuelve el número de fechas de la serie.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dates)
}

// Range devuelve la primera y última fecha. ok=false si la serie está vacía.
func (s *PriceSeries) Range() (first, last time.Time, ok bool) {
	if s.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.dates[0], s.dates[len(s.dates)-1], true
}

// Tickers devuelve los tickers disponibles, ordenados.
func (s *PriceSeries) Tickers() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.prices))
	for t := range s.prices {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Lookup devuelve el precio de ticker en date según la política dada.
// Nunca inventa datos: si no hay observación válida devuelve ErrDateNotFound.
func (s *PriceSeries) Lookup(ticker string, date time.Time, policy LookupPolicy) (float64, error) {
	if s == nil {
		return 0, fmt.Errorf("lookup %s %s: %w", ticker, date.Format(DateLayout), ErrDateNotFound)
	}
	px, ok := s.prices[ticker]
	if !ok {
		return 0, fmt.Errorf("lookup %s: %w", ticker, ErrUnknownTicker)
	}

	d := truncateDay(date)
	// Primer índice con dates[i] >= d.
	i := sort.Search(len(s.dates), func(i int) bool {
		return !s.dates[i].Before(d)
	})

	if i < len(s.dates) && s.dates[i].Equal(d) && !math.IsNaN(px[i]) {
		return px[i], nil
	}

	if policy == LookupNearestBefore {
		for j := i - 1; j >= 0; j-- {
			if !math.IsNaN(px[j]) {
				return px[j], nil
			}
		}
	}

	return 0, fmt.Errorf("lookup %s %s: %w", ticker, d.Format(DateLayout), ErrDateNotFound)
}
