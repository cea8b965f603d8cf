package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/srujanra/apps-dash/config"
	"github.com/srujanra/apps-dash/internal/adapters/notify"
	"github.com/srujanra/apps-dash/internal/adapters/storage"
	"github.com/srujanra/apps-dash/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "run the backtest without persisting it")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	raw := flag.Bool("raw", false, "print the raw cashflow vectors behind each IRR")
	report := flag.Bool("report", false, "list stored runs and exit")
	runID := flag.String("run", "", "show a stored run by id and exit")
	workers := flag.Int("workers", 0, "trial workers (overrides config, 1 = sequential)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *workers > 0 {
		cfg.Backtest.Workers = *workers
	}
	setupLogger(cfg.Log)

	slog.Info("acnbacktest starting",
		"config", *configPath,
		"ticker", cfg.Backtest.Ticker,
		"dry_run", *dryRun,
		"report", *report || *runID != "",
		"workers", cfg.Backtest.Workers,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := notify.NewConsole(*raw)

	var store *storage.SQLiteStorage
	if !*dryRun || *report || *runID != "" {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN, cfg.Retention())
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	if *report || *runID != "" {
		if err := runReport(ctx, store, notifier, *runID); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	// Un *SQLiteStorage nil dentro de la interfaz no sería nil.
	var persist ports.Storage
	if store != nil {
		persist = store
	}
	if err := runBacktest(ctx, cfg, persist, notifier); err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	slog.Info("acnbacktest finished")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
