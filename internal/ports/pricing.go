package ports

import (
	"context"

	"github.com/srujanra/apps-dash/internal/domain"
)

// PricingEngine valora un contrato con unos datos de mercado.
// Es la frontera con el motor de pricing: se puede cambiar por una aproximación
// cerrada en tests sin tocar el generador ni el evaluador.
type PricingEngine interface {
	// Price devuelve el precio justo por unidad de nominal.
	Price(ctx context.Context, contract domain.AutoCallable, market domain.MarketData) (float64, error)
}

// CashflowModel produce el calendario de flujos realizado de un contrato.
type CashflowModel interface {
	// Cashflows devuelve los flujos ordenados por fecha.
	Cashflows(ctx context.Context, contract domain.AutoCallable) (domain.CashflowSchedule, error)
}
