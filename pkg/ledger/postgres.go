package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tripcraft/tripgen/pkg/models"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS usage_days (
		day TEXT PRIMARY KEY,
		cost NUMERIC NOT NULL DEFAULT 0,
		requests BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS usage_day_models (
		day TEXT NOT NULL,
		model TEXT NOT NULL,
		requests BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (day, model)
	)`,
	`CREATE TABLE IF NOT EXISTS usage_day_request_types (
		day TEXT NOT NULL,
		request_type TEXT NOT NULL,
		requests BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (day, request_type)
	)`,
}

// PostgresLedger implements Ledger on PostgreSQL so several instances can
// share one day-keyed record.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and creates the schema.
func NewPostgres(ctx context.Context, url string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect ledger db: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate ledger db: %w", err)
		}
	}
	return &PostgresLedger{pool: pool}, nil
}

// Record increments all counters inside one transaction. Row locks taken by
// the upserts serialize concurrent records for the same day.
func (l *PostgresLedger) Record(ctx context.Context, day, model, requestType string, cost decimal.Decimal) error {
	if err := validate(day, model, requestType, cost); err != nil {
		return err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO usage_days (day, cost, requests) VALUES ($1, $2::text::numeric, 1)
		 ON CONFLICT (day) DO UPDATE SET cost = usage_days.cost + EXCLUDED.cost,
		 requests = usage_days.requests + 1, updated_at = now()`,
		day, cost.String(),
	)
	if err != nil {
		return fmt.Errorf("update day: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO usage_day_models (day, model, requests) VALUES ($1, $2, 1)
		 ON CONFLICT (day, model) DO UPDATE SET requests = usage_day_models.requests + 1`,
		day, model,
	)
	if err != nil {
		return fmt.Errorf("update day models: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO usage_day_request_types (day, request_type, requests) VALUES ($1, $2, 1)
		 ON CONFLICT (day, request_type) DO UPDATE SET requests = usage_day_request_types.requests + 1`,
		day, requestType,
	)
	if err != nil {
		return fmt.Errorf("update day request types: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// DailyCost returns the accumulated cost for day.
func (l *PostgresLedger) DailyCost(ctx context.Context, day string) (decimal.Decimal, error) {
	var text string
	err := l.pool.QueryRow(ctx, `SELECT cost::text FROM usage_days WHERE day = $1`, day).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("daily cost: %w", err)
	}
	return decimal.NewFromString(text)
}

// DailyRequestCount returns the request count for day.
func (l *PostgresLedger) DailyRequestCount(ctx context.Context, day string) (int64, error) {
	var n int64
	err := l.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(requests), 0)::bigint FROM usage_days WHERE day = $1`, day,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("daily request count: %w", err)
	}
	return n, nil
}

// Day reads a consistent snapshot of the day under REPEATABLE READ.
func (l *PostgresLedger) Day(ctx context.Context, day string) (models.DayUsage, bool, error) {
	usage := models.NewDayUsage(day)

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return usage, false, fmt.Errorf("begin day read: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var costText string
	err = tx.QueryRow(ctx, `SELECT cost::text, requests FROM usage_days WHERE day = $1`, day).Scan(&costText, &usage.Requests)
	if errors.Is(err, pgx.ErrNoRows) {
		return usage, false, nil
	}
	if err != nil {
		return usage, false, fmt.Errorf("read day: %w", err)
	}
	if usage.Cost, err = decimal.NewFromString(costText); err != nil {
		return usage, false, fmt.Errorf("parse day cost: %w", err)
	}

	if err := pgCounts(ctx, tx, `SELECT model, requests FROM usage_day_models WHERE day = $1`, day, usage.Models); err != nil {
		return usage, false, fmt.Errorf("read day models: %w", err)
	}
	if err := pgCounts(ctx, tx, `SELECT request_type, requests FROM usage_day_request_types WHERE day = $1`, day, usage.RequestTypes); err != nil {
		return usage, false, fmt.Errorf("read day request types: %w", err)
	}
	return usage, true, nil
}

// Days returns every recorded day key.
func (l *PostgresLedger) Days(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT day FROM usage_days ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	days, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan days: %w", err)
	}
	return days, nil
}

// Close closes the pool.
func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}

func pgCounts(ctx context.Context, tx pgx.Tx, query, day string, into map[string]int64) error {
	rows, err := tx.Query(ctx, query, day)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}
