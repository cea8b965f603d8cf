package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/srujanra/apps-dash/config"
	"github.com/srujanra/apps-dash/internal/adapters/prices"
	"github.com/srujanra/apps-dash/internal/adapters/pricing"
	"github.com/srujanra/apps-dash/internal/adapters/replay"
	"github.com/srujanra/apps-dash/internal/application/backtest"
	"github.com/srujanra/apps-dash/internal/domain"
	"github.com/srujanra/apps-dash/internal/ports"
)

// runBacktest carga la serie, ejecuta el backtest, imprime el reporte y lo
// persiste si hay storage.
func runBacktest(ctx context.Context, cfg *config.Config, store ports.Storage, notifier ports.Notifier) error {
	params, err := runParams(cfg)
	if err != nil {
		return err
	}

	var source ports.PriceSource
	if cfg.Data.URL != "" {
		source = prices.NewHTTPSource(cfg.Data.URL)
	} else {
		source = prices.NewCSVFile(cfg.Data.Path)
	}

	series, err := source.LoadSeries(ctx)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	if !slices.Contains(series.Tickers(), params.Ticker) {
		return fmt.Errorf("ticker %q: %w", params.Ticker, domain.ErrUnknownTicker)
	}

	gen := backtest.GeneratorConfig{
		Ticker:       params.Ticker,
		Ccy:          cfg.Backtest.Ccy,
		PeriodMonths: params.PeriodMonths,
		TenorMonths:  params.TenorMonths,
		Start:        params.Start,
		End:          params.End,
		StrikePct:    params.StrikePct,
		BarrierPct:   params.BarrierPct,
		CouponRate:   params.CouponRate,
		Lookup:       params.Lookup,
		Calendar:     domain.NewCalendar(cfg.HolidayDates()...),
	}
	market := domain.MarketData{
		Rate:     params.Rate,
		DivYield: params.DivYield,
		Vol:      params.Vol,
		Paths:    params.Paths,
		Seed:     cfg.Market.Seed,
	}

	runner := backtest.New(
		backtest.Config{Generator: gen, Market: market, Workers: cfg.Backtest.Workers},
		pricing.NewMonteCarlo(params.DayCount, cfg.Market.Antithetic),
		replay.NewHistorical(series, params.Lookup),
		backtest.NewEvaluator(params.DayCount, params.Sign, domain.DefaultIRRConfig()),
	)

	report, err := runner.Run(ctx, series)
	if err != nil {
		return err
	}

	if err := notifier.Notify(ctx, report); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if store == nil {
		slog.Info("dry run: results not stored")
		return nil
	}
	id, err := store.SaveRun(ctx, params, report)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	slog.Info("run stored", "id", id, "trials", report.TrialsPlanned)
	return nil
}

// runParams traduce la config validada a los parámetros persistidos del run.
func runParams(cfg *config.Config) (domain.RunParams, error) {
	dc, err := domain.ParseDayCount(cfg.Backtest.DayCount)
	if err != nil {
		return domain.RunParams{}, err
	}
	sign, err := domain.ParseSignConvention(cfg.Backtest.Sign)
	if err != nil {
		return domain.RunParams{}, err
	}
	lookup, err := domain.ParseLookupPolicy(cfg.Backtest.Lookup)
	if err != nil {
		return domain.RunParams{}, err
	}

	return domain.RunParams{
		Ticker:       cfg.Backtest.Ticker,
		Start:        cfg.StartDate(),
		End:          cfg.EndDate(),
		PeriodMonths: cfg.Backtest.PeriodMonths,
		TenorMonths:  cfg.Backtest.TenorMonths,
		StrikePct:    cfg.Backtest.StrikePct,
		BarrierPct:   cfg.Backtest.BarrierPct,
		CouponRate:   cfg.Backtest.CouponRate,
		Rate:         cfg.Market.Rate,
		DivYield:     cfg.Market.DivYield,
		Vol:          cfg.Market.Vol,
		Paths:        cfg.Market.Paths,
		DayCount:     dc,
		Sign:         sign,
		Lookup:       lookup,
	}, nil
}
