package storage

// sqlite.go — persistencia de backtests.
//
// Estrategia:
//   - `backtest_runs`: una fila por run con sus parámetros y conteos.
//   - `backtest_results`: una fila por trial. irr/price son NULL cuando el
//     trial no tiene valor, así la distinción computed/undefined/skipped
//     sobrevive al round-trip (status es la fuente de verdad).
//   - `backtest_cashflows`: canal lateral con los flujos crudos de cada trial.
//   - Prune opcional al arrancar: runs más viejos que la retención configurada.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"

	"github.com/srujanra/apps-dash/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
    id             TEXT PRIMARY KEY,
    created_at     TEXT    NOT NULL,
    ticker         TEXT    NOT NULL,
    start_date     TEXT,
    end_date       TEXT,
    period_months  INTEGER NOT NULL DEFAULT 0,
    tenor_months   INTEGER NOT NULL DEFAULT 0,
    strike_pct     REAL    NOT NULL DEFAULT 0,
    barrier_pct    REAL    NOT NULL DEFAULT 0,
    coupon_rate    REAL    NOT NULL DEFAULT 0,
    rate           REAL    NOT NULL DEFAULT 0,
    div_yield      REAL    NOT NULL DEFAULT 0,
    vol            REAL    NOT NULL DEFAULT 0,
    paths          INTEGER NOT NULL DEFAULT 0,
    day_count      TEXT    NOT NULL,
    sign           TEXT    NOT NULL,
    lookup         TEXT    NOT NULL,
    trials_planned INTEGER NOT NULL DEFAULT 0,
    computed       INTEGER NOT NULL DEFAULT 0,
    undefined      INTEGER NOT NULL DEFAULT 0,
    skipped        INTEGER NOT NULL DEFAULT 0,
    mean_irr       REAL
);

CREATE TABLE IF NOT EXISTS backtest_results (
    run_id       TEXT    NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
    seq          INTEGER NOT NULL,
    pricing_date TEXT    NOT NULL,
    status       TEXT    NOT NULL,
    irr          REAL,
    price        REAL,
    is_ko        INTEGER NOT NULL DEFAULT 0,
    duration     REAL    NOT NULL DEFAULT 0,
    reason       TEXT,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS backtest_cashflows (
    run_id       TEXT    NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
    pricing_date TEXT    NOT NULL,
    idx          INTEGER NOT NULL,
    ts           TEXT    NOT NULL,
    year_frac    REAL    NOT NULL,
    amount       REAL    NOT NULL,
    PRIMARY KEY (run_id, pricing_date, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON backtest_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_run  ON backtest_results(run_id);
`

// tsLayout tiene ancho fijo para que created_at ordene bien como texto.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

// ErrRunNotFound indica que el ID no existe.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el
// schema. Si retention > 0 borra los runs más antiguos que retention.
func NewSQLiteStorage(path string, retention time.Duration) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: enable foreign keys: %w", err)
	}

	s := &SQLiteStorage{db: db, now: time.Now}
	if retention > 0 {
		s.pruneOld(context.Background(), retention)
	}
	return s, nil
}

// SaveRun persiste el run completo en una transacción y devuelve su ID.
func (s *SQLiteStorage) SaveRun(ctx context.Context, params domain.RunParams, report domain.Report) (string, error) {
	id := uuid.New().String()
	createdAt := s.now().UTC().Format(tsLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, created_at, ticker, start_date, end_date, period_months, tenor_months,
			 strike_pct, barrier_pct, coupon_rate, rate, div_yield, vol, paths,
			 day_count, sign, lookup, trials_planned, computed, undefined, skipped, mean_irr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, createdAt, params.Ticker, dateOrNil(params.Start), dateOrNil(params.End),
		params.PeriodMonths, params.TenorMonths,
		params.StrikePct, params.BarrierPct, params.CouponRate,
		params.Rate, params.DivYield, params.Vol, params.Paths,
		string(params.DayCount), string(params.Sign), string(params.Lookup),
		report.TrialsPlanned, report.Computed, report.Undefined, report.Skipped,
		nullable(meanIRR(report)),
	); err != nil {
		return "", fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	resStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_results
			(run_id, seq, pricing_date, status, irr, price, is_ko, duration, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: prepare results: %w", err)
	}
	defer resStmt.Close()

	for i, r := range report.Results {
		isKO := 0
		if r.IsKnockout {
			isKO = 1
		}
		if _, err := resStmt.ExecContext(ctx,
			id, i, r.PricingDate.Format(domain.DateLayout), string(r.Status),
			nullable(r.IRR), nullable(r.Price), isKO, r.Duration, r.Reason,
		); err != nil {
			return "", fmt.Errorf("storage.SaveRun: insert result %s: %w",
				r.PricingDate.Format(domain.DateLayout), err)
		}
	}

	cfStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_cashflows (run_id, pricing_date, idx, ts, year_frac, amount)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: prepare cashflows: %w", err)
	}
	defer cfStmt.Close()

	for _, raw := range report.Raw {
		pd := raw.PricingDate.Format(domain.DateLayout)
		for j := range raw.Amounts {
			if _, err := cfStmt.ExecContext(ctx,
				id, pd, j, raw.Times[j].Format(domain.DateLayout), raw.YearFracs[j], raw.Amounts[j],
			); err != nil {
				return "", fmt.Errorf("storage.SaveRun: insert cashflow %s/%d: %w", pd, j, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return id, nil
}

// GetRun devuelve el run con sus resultados y flujos crudos.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (domain.BacktestRun, error) {
	var (
		run                    domain.BacktestRun
		createdAt              string
		start, end             sql.NullString
		dayCount, sign, lookup string
	)
	run.ID = id

	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, ticker, start_date, end_date, period_months, tenor_months,
		       strike_pct, barrier_pct, coupon_rate, rate, div_yield, vol, paths,
		       day_count, sign, lookup, trials_planned
		FROM backtest_runs WHERE id = ?`, id,
	).Scan(
		&createdAt, &run.Params.Ticker, &start, &end,
		&run.Params.PeriodMonths, &run.Params.TenorMonths,
		&run.Params.StrikePct, &run.Params.BarrierPct, &run.Params.CouponRate,
		&run.Params.Rate, &run.Params.DivYield, &run.Params.Vol, &run.Params.Paths,
		&dayCount, &sign, &lookup, &run.Report.TrialsPlanned,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BacktestRun{}, fmt.Errorf("storage.GetRun: %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return domain.BacktestRun{}, fmt.Errorf("storage.GetRun: query run: %w", err)
	}

	run.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	run.Params.Start = parseDateOrZero(start)
	run.Params.End = parseDateOrZero(end)
	run.Params.DayCount = domain.DayCount(dayCount)
	run.Params.Sign = domain.SignConvention(sign)
	run.Params.Lookup = domain.LookupPolicy(lookup)
	run.Report.Ticker = run.Params.Ticker

	results, err := s.getResults(ctx, id)
	if err != nil {
		return domain.BacktestRun{}, err
	}
	run.Report.Results = results

	raw, err := s.getCashflows(ctx, id)
	if err != nil {
		return domain.BacktestRun{}, err
	}
	run.Report.Raw = raw

	run.Report.Finalize()
	return run, nil
}

// ListRuns devuelve los últimos runs, más recientes primero.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, ticker, trials_planned, computed, undefined, skipped, mean_irr
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var (
			sum       domain.RunSummary
			createdAt string
			mean      sql.NullFloat64
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Ticker, &sum.TrialsPlanned,
			&sum.Computed, &sum.Undefined, &sum.Skipped, &mean); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		sum.MeanIRR = math.NaN()
		if mean.Valid {
			sum.MeanIRR = mean.Float64
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStorage) getResults(ctx context.Context, id string) ([]domain.BacktestResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pricing_date, status, irr, price, is_ko, duration, reason
		FROM backtest_results WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: query results: %w", err)
	}
	defer rows.Close()

	var out []domain.BacktestResult
	for rows.Next() {
		var (
			r          domain.BacktestResult
			pd, status string
			irr, price sql.NullFloat64
			isKO       int
			reason     sql.NullString
		)
		if err := rows.Scan(&pd, &status, &irr, &price, &isKO, &r.Duration, &reason); err != nil {
			return nil, fmt.Errorf("storage.GetRun: scan result: %w", err)
		}
		r.PricingDate, _ = time.Parse(domain.DateLayout, pd)
		r.Status = domain.ResultStatus(status)
		r.IRR = fromNullable(irr)
		r.Price = fromNullable(price)
		r.IsKnockout = isKO == 1
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) getCashflows(ctx context.Context, id string) ([]domain.TrialCashflows, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pricing_date, ts, year_frac, amount
		FROM backtest_cashflows WHERE run_id = ? ORDER BY pricing_date, idx`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: query cashflows: %w", err)
	}
	defer rows.Close()

	var out []domain.TrialCashflows
	for rows.Next() {
		var (
			pd, ts string
			yf, a  float64
		)
		if err := rows.Scan(&pd, &ts, &yf, &a); err != nil {
			return nil, fmt.Errorf("storage.GetRun: scan cashflow: %w", err)
		}
		date, _ := time.Parse(domain.DateLayout, pd)
		t, _ := time.Parse(domain.DateLayout, ts)
		if len(out) == 0 || !out[len(out)-1].PricingDate.Equal(date) {
			out = append(out, domain.TrialCashflows{PricingDate: date})
		}
		last := &out[len(out)-1]
		last.Times = append(last.Times, t)
		last.YearFracs = append(last.YearFracs, yf)
		last.Amounts = append(last.Amounts, a)
	}
	return out, rows.Err()
}

// pruneOld elimina runs antiguos (y en cascada sus resultados y flujos).
func (s *SQLiteStorage) pruneOld(ctx context.Context, retention time.Duration) {
	cutoff := s.now().UTC().Add(-retention).Format(tsLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM backtest_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		slog.Warn("prune old runs failed", "err", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("pruned old runs", "count", n, "retention", retention)
	}
}

// meanIRR devuelve la media de las TIR calculadas, o NaN si no hay ninguna.
func meanIRR(r domain.Report) float64 {
	irrs := r.IRRs()
	if len(irrs) == 0 {
		return math.NaN()
	}
	return stat.Mean(irrs, nil)
}

// nullable convierte NaN/Inf en NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func dateOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(domain.DateLayout)
}

func parseDateOrZero(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(domain.DateLayout, s.String)
	return t
}
