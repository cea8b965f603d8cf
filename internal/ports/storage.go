package ports

import (
	"context"

	"github.com/srujanra/apps-dash/internal/domain"
)

// Storage persiste los backtests ejecutados.
type Storage interface {
	// SaveRun persiste el run completo y devuelve su ID.
	SaveRun(ctx context.Context, params domain.RunParams, report domain.Report) (string, error)

	// GetRun devuelve un run con todos sus resultados y flujos crudos.
	GetRun(ctx context.Context, id string) (domain.BacktestRun, error)

	// ListRuns devuelve los últimos runs, más recientes primero.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
