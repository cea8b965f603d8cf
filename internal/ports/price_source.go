package ports

import (
	"context"

	"github.com/srujanra/apps-dash/internal/domain"
)

// PriceSource carga la serie histórica de precios.
type PriceSource interface {
	LoadSeries(ctx context.Context) (*domain.PriceSeries, error)
}
