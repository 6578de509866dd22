package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/tripcraft/tripgen/pkg/models"
)

const createSQLiteSchema = `
CREATE TABLE IF NOT EXISTS usage_days (
	day TEXT PRIMARY KEY,
	cost TEXT NOT NULL,
	requests INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS usage_day_models (
	day TEXT NOT NULL,
	model TEXT NOT NULL,
	requests INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (day, model)
);
CREATE TABLE IF NOT EXISTS usage_day_request_types (
	day TEXT NOT NULL,
	request_type TEXT NOT NULL,
	requests INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (day, request_type)
);
`

// SQLiteLedger implements Ledger with a SQLite database. Cost is stored as
// decimal text and accumulated in Go so sums stay exact.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens a SQLiteLedger and runs auto-migration.
func NewSQLite(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// One connection serializes every record transaction.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Record applies the four counter updates in a single transaction.
func (l *SQLiteLedger) Record(ctx context.Context, day, model, requestType string, cost decimal.Decimal) error {
	if err := validate(day, model, requestType, cost); err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := scanCost(tx.QueryRowContext(ctx, `SELECT cost FROM usage_days WHERE day = ?`, day))
	if err != nil {
		return fmt.Errorf("read day cost: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO usage_days (day, cost, requests, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(day) DO UPDATE SET cost = excluded.cost, requests = requests + 1, updated_at = excluded.updated_at`,
		day, current.Add(cost).String(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update day: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO usage_day_models (day, model, requests) VALUES (?, ?, 1)
		 ON CONFLICT(day, model) DO UPDATE SET requests = requests + 1`,
		day, model,
	)
	if err != nil {
		return fmt.Errorf("update day models: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO usage_day_request_types (day, request_type, requests) VALUES (?, ?, 1)
		 ON CONFLICT(day, request_type) DO UPDATE SET requests = requests + 1`,
		day, requestType,
	)
	if err != nil {
		return fmt.Errorf("update day request types: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// DailyCost returns the accumulated cost for day.
func (l *SQLiteLedger) DailyCost(ctx context.Context, day string) (decimal.Decimal, error) {
	cost, err := scanCost(l.db.QueryRowContext(ctx, `SELECT cost FROM usage_days WHERE day = ?`, day))
	if err != nil {
		return decimal.Zero, fmt.Errorf("daily cost: %w", err)
	}
	return cost, nil
}

// DailyRequestCount returns the request count for day.
func (l *SQLiteLedger) DailyRequestCount(ctx context.Context, day string) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(requests), 0) FROM usage_days WHERE day = ?`, day,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("daily request count: %w", err)
	}
	return n, nil
}

// Day reads the day row and both breakdowns in one read transaction.
func (l *SQLiteLedger) Day(ctx context.Context, day string) (models.DayUsage, bool, error) {
	usage := models.NewDayUsage(day)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return usage, false, fmt.Errorf("begin day read: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var costText string
	err = tx.QueryRowContext(ctx, `SELECT cost, requests FROM usage_days WHERE day = ?`, day).Scan(&costText, &usage.Requests)
	if errors.Is(err, sql.ErrNoRows) {
		return usage, false, nil
	}
	if err != nil {
		return usage, false, fmt.Errorf("read day: %w", err)
	}
	if usage.Cost, err = decimal.NewFromString(costText); err != nil {
		return usage, false, fmt.Errorf("parse day cost: %w", err)
	}

	if err := scanCounts(ctx, tx, `SELECT model, requests FROM usage_day_models WHERE day = ?`, day, usage.Models); err != nil {
		return usage, false, fmt.Errorf("read day models: %w", err)
	}
	if err := scanCounts(ctx, tx, `SELECT request_type, requests FROM usage_day_request_types WHERE day = ?`, day, usage.RequestTypes); err != nil {
		return usage, false, fmt.Errorf("read day request types: %w", err)
	}
	return usage, true, nil
}

// Days returns every recorded day key.
func (l *SQLiteLedger) Days(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT day FROM usage_days ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// Close releases the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func scanCost(row *sql.Row) (decimal.Decimal, error) {
	var text string
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(text)
}

func scanCounts(ctx context.Context, tx *sql.Tx, query, day string, into map[string]int64) error {
	rows, err := tx.QueryContext(ctx, query, day)
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
