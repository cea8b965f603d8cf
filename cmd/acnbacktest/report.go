package main

import (
	"context"
	"fmt"

	"github.com/srujanra/apps-dash/internal/adapters/notify"
	"github.com/srujanra/apps-dash/internal/adapters/storage"
)

const listLimit = 20

// runReport lista los runs guardados, o muestra uno completo si se pasa id.
func runReport(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console, id string) error {
	if id == "" {
		runs, err := store.ListRuns(ctx, listLimit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		notifier.PrintRuns(runs)
		return nil
	}

	run, err := store.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("get run %s: %w", id, err)
	}
	return notifier.PrintRun(ctx, run)
}
