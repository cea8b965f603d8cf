package replay

import (
	"context"
	"fmt"

	"github.com/srujanra/apps-dash/internal/domain"
)

// Historical implementa ports.CashflowModel reproduciendo el contrato sobre
// la serie histórica: los fixings son los precios reales en cada barrier date.
type Historical struct {
	series *domain.PriceSeries
	lookup domain.LookupPolicy
}

// NewHistorical crea el modelo sobre una serie compartida de solo lectura.
func NewHistorical(series *domain.PriceSeries, lookup domain.LookupPolicy) *Historical {
	return &Historical{series: series, lookup: lookup}
}

// Cashflows devuelve los flujos realizados del contrato.
// Si falta el precio de una barrier date anterior al knock-out devuelve
// domain.ErrDateNotFound: no se rellenan fixings inventados.
func (h *Historical) Cashflows(ctx context.Context, contract domain.AutoCallable) (domain.CashflowSchedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fixings := make([]float64, len(contract.BarrierDates))
	for i, d := range contract.BarrierDates {
		px, err := h.series.Lookup(contract.Ticker, d, h.lookup)
		if err != nil {
			return nil, fmt.Errorf("replay.Cashflows: fixing %d: %w", i+1, err)
		}
		fixings[i] = px
		// Knock-out: los fixings posteriores no hacen falta.
		if px >= contract.Barrier {
			for j := i + 1; j < len(fixings); j++ {
				fixings[j] = px
			}
			break
		}
	}

	schedule, err := contract.Payoff(fixings)
	if err != nil {
		return nil, fmt.Errorf("replay.Cashflows: %w", err)
	}
	return schedule, nil
}
