package ports

import (
	"context"

	"github.com/srujanra/apps-dash/internal/domain"
)

// Notifier presenta el reporte del backtest al usuario.
type Notifier interface {
	// Notify muestra la tabla de resultados y el resumen.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, report domain.Report) error
}
