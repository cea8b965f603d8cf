package backtest

// concurrent.go — worker pool para evaluar trials en paralelo.
//
// Ningún trial depende de otro y la serie es de solo lectura, así que el único
// requisito es restaurar el orden por fecha de pricing al final (Report.Finalize).

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// runConcurrent evalúa los trials con un pool de workers.
// Si workers <= 0 usa runtime.NumCPU().
func (r *Runner) runConcurrent(ctx context.Context, plans []TrialPlan, workers int) ([]Evaluation, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(plans))

	workCh := make(chan TrialPlan, len(plans))
	resultCh := make(chan Evaluation, len(plans))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plan := range workCh {
				if ctx.Err() != nil {
					continue // drenar sin trabajar
				}
				resultCh <- r.runTrial(ctx, plan)
			}
		}()
	}

	for _, plan := range plans {
		workCh <- plan
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	evals := make([]Evaluation, 0, len(plans))
	for ev := range resultCh {
		evals = append(evals, ev)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("backtest.Run: cancelled after %d/%d trials: %w", len(evals), len(plans), err)
	}

	slog.Debug("concurrent evaluation complete",
		"trials", len(plans),
		"workers", workers,
	)
	return evals, nil
}
