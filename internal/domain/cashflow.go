package domain

import (
	"fmt"
	"time"
)

// Cashflow es un flujo de caja en una fecha.
type Cashflow struct {
	Time   time.Time
	Amount float64
}

// CashflowSchedule es una secuencia de flujos con timestamps no decrecientes.
type CashflowSchedule []Cashflow

// Validate comprueba que los timestamps sean no decrecientes.
func (s CashflowSchedule) Validate() error {
	for i := 1; i < len(s); i++ {
		if s[i].Time.Before(s[i-1].Time) {
			return fmt.Errorf("cashflow %d at %s before %s: %w",
				i, s[i].Time.Format(DateLayout), s[i-1].Time.Format(DateLayout), ErrInvalidTrial)
		}
	}
	return nil
}

// Total devuelve la suma de los importes.
func (s CashflowSchedule) Total() float64 {
	var sum float64
	for _, cf := range s {
		sum += cf.Amount
	}
	return sum
}

// IsZero devuelve true si el calendario está vacío o todos los importes son 0.
func (s CashflowSchedule) IsZero() bool {
	for _, cf := range s {
		if cf.Amount != 0 {
			return false
		}
	}
	return true
}

// SignConvention fija el signo del flujo sintético de entrada en t=0.
type SignConvention string

const (
	// EntryNegative: −precio en t=0 y flujos realizados positivos (vista del inversor).
	EntryNegative SignConvention = "entry-negative"
	// EntryPositive: +precio en t=0 y flujos realizados negativos (vista del emisor).
	EntryPositive SignConvention = "entry-positive"
)

// ParseSignConvention valida la convención configurada. Vacío = entry-negative.
func ParseSignConvention(s string) (SignConvention, error) {
	switch SignConvention(s) {
	case "", EntryNegative:
		return EntryNegative, nil
	case EntryPositive:
		return EntryPositive, nil
	default:
		return "", fmt.Errorf("domain.ParseSignConvention: unknown convention %q", s)
	}
}

// Apply devuelve (flujo de entrada, multiplicador de flujos realizados).
func (c SignConvention) Apply(price float64) (entry, flowSign float64) {
	if c == EntryPositive {
		return price, -1
	}
	return -price, 1
}
