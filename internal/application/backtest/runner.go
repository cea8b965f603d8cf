package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/srujanra/apps-dash/internal/domain"
	"github.com/srujanra/apps-dash/internal/ports"
)

// Config agrupa la configuración completa de un run.
type Config struct {
	Generator GeneratorConfig
	Market    domain.MarketData // Spot se rellena por trial
	Workers   int               // <= 1 → secuencial
}

// Runner orquesta generador → pricer → modelo de flujos → evaluador.
type Runner struct {
	cfg       Config
	pricer    ports.PricingEngine
	cashflows ports.CashflowModel
	evaluator *Evaluator
}

// New crea un Runner con sus dependencias inyectadas.
func New(cfg Config, pricer ports.PricingEngine, cashflows ports.CashflowModel, evaluator *Evaluator) *Runner {
	return &Runner{
		cfg:       cfg,
		pricer:    pricer,
		cashflows: cashflows,
		evaluator: evaluator,
	}
}

// Run ejecuta el backtest completo sobre la serie. Los fallos de un trial se
// registran en el reporte y el batch continúa; solo la cancelación del
// contexto o una configuración inválida abortan.
func (r *Runner) Run(ctx context.Context, series *domain.PriceSeries) (domain.Report, error) {
	plans, err := GenerateTrials(series, r.cfg.Generator)
	if err != nil {
		return domain.Report{}, fmt.Errorf("backtest.Run: %w", err)
	}

	report := domain.Report{
		Ticker:        r.cfg.Generator.Ticker,
		TrialsPlanned: len(plans),
	}
	if len(plans) == 0 {
		slog.Warn("no trials could be formed from the price series",
			"ticker", r.cfg.Generator.Ticker,
			"observations", series.Len(),
			"tenor_months", r.cfg.Generator.TenorMonths,
		)
		return report, nil
	}

	start := time.Now()
	var evals []Evaluation
	if r.cfg.Workers > 1 {
		evals, err = r.runConcurrent(ctx, plans, r.cfg.Workers)
	} else {
		evals, err = r.runSequential(ctx, plans)
	}
	if err != nil {
		return domain.Report{}, err
	}

	for _, ev := range evals {
		report.Results = append(report.Results, ev.Result)
		if len(ev.Raw.Amounts) > 0 {
			report.Raw = append(report.Raw, ev.Raw)
		}
	}
	report.Finalize()

	slog.Info("backtest complete",
		"ticker", report.Ticker,
		"trials", report.TrialsPlanned,
		"computed", report.Computed,
		"undefined", report.Undefined,
		"skipped", report.Skipped,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return report, nil
}

func (r *Runner) runSequential(ctx context.Context, plans []TrialPlan) ([]Evaluation, error) {
	evals := make([]Evaluation, 0, len(plans))
	for i, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest.Run: cancelled at trial %d/%d: %w", i+1, len(plans), err)
		}
		evals = append(evals, r.runTrial(ctx, plan))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("backtest.Run: cancelled: %w", err)
	}
	return evals, nil
}

// runTrial pricea, reproduce y evalúa un trial. Nunca aborta el batch.
func (r *Runner) runTrial(ctx context.Context, plan TrialPlan) Evaluation {
	trial := plan.Trial
	date := trial.PricingDate
	logger := slog.With("pricing_date", date.Format(domain.DateLayout), "trial", trial.Index)

	if plan.Err != nil {
		logger.Warn("trial skipped", "err", plan.Err)
		return Evaluation{Result: domain.SkippedResult(date, plan.Err.Error())}
	}

	contract := trial.Contract(r.cfg.Generator.Ccy)
	if err := contract.Validate(); err != nil {
		logger.Warn("invalid contract", "err", err)
		return Evaluation{Result: domain.SkippedResult(date, err.Error())}
	}

	market := r.cfg.Market
	market.Ticker = trial.Ticker
	market.Spot = trial.Spot

	price, err := r.pricer.Price(ctx, contract, market)
	if err != nil {
		logger.Warn("pricing failed", "err", err)
		return Evaluation{Result: domain.UndefinedResult(date, math.NaN(), "pricing: "+err.Error())}
	}

	schedule, err := r.cashflows.Cashflows(ctx, contract)
	if err != nil {
		logger.Warn("cashflow replay failed", "err", err)
		if errors.Is(err, domain.ErrDateNotFound) || errors.Is(err, domain.ErrUnknownTicker) {
			return Evaluation{Result: domain.SkippedResult(date, "cashflows: "+err.Error())}
		}
		return Evaluation{Result: domain.UndefinedResult(date, price, "cashflows: "+err.Error())}
	}

	ev := r.evaluator.Evaluate(date, contract.Maturity, schedule, price)
	if ev.Result.Status != domain.StatusComputed {
		logger.Warn("irr undefined", "reason", ev.Result.Reason)
	} else {
		logger.Debug("trial evaluated",
			"price", ev.Result.Price,
			"irr", ev.Result.IRR,
			"knockout", ev.Result.IsKnockout,
		)
	}
	return ev
}
