// Package audit persists the terminal state of every generation request.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/tripcraft/tripgen/pkg/models"
)

// Fixed-width UTC layout so created_at sorts and compares as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Logger writes and queries audit entries in a dedicated SQLite database.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	now  func() time.Time
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the audit SQLite database, creates the schema and starts the
// hourly retention sweep.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		now:  time.Now,
		done: make(chan struct{}),
	}

	if cfg.RetentionDays > 0 {
		l.wg.Add(1)
		go l.retentionLoop()
	}
	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS generation_audit (
		request_id        TEXT PRIMARY KEY,
		day               TEXT NOT NULL,
		request_type      TEXT NOT NULL,
		destination       TEXT,
		model             TEXT,
		provider          TEXT,
		state             TEXT NOT NULL,
		error_kind        TEXT,
		prompt            TEXT,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		cost              TEXT NOT NULL DEFAULT '0',
		attempts          INTEGER NOT NULL DEFAULT 0,
		latency_ms        INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_day ON generation_audit(day)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_created ON generation_audit(created_at)`)
	return err
}

// Log inserts an audit entry. The prompt is dropped unless IncludePrompts is
// set and truncated to MaxPromptSize bytes.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}

	prompt := ""
	if l.cfg.IncludePrompts {
		prompt = entry.Prompt
		if l.cfg.MaxPromptSize > 0 && len(prompt) > l.cfg.MaxPromptSize {
			prompt = prompt[:l.cfg.MaxPromptSize]
		}
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = l.now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO generation_audit
		(request_id, day, request_type, destination, model, provider, state, error_kind,
		 prompt, prompt_tokens, completion_tokens, cost, attempts, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.Day, entry.RequestType, entry.Destination,
		entry.Model, entry.Provider, entry.State, entry.ErrorKind,
		prompt, entry.PromptTokens, entry.CompletionTokens, entry.Cost.String(),
		entry.Attempts, entry.LatencyMs, created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns audit entries matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	q := `SELECT request_id, day, request_type, destination, model, provider, state, error_kind,
		prompt, prompt_tokens, completion_tokens, cost, attempts, latency_ms, created_at
		FROM generation_audit WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Day != "" {
		q += " AND day = ?"
		args = append(args, opts.Day)
	}
	if opts.State != "" {
		q += " AND state = ?"
		args = append(args, opts.State)
	}
	if opts.RequestType != "" {
		q += " AND request_type = ?"
		args = append(args, opts.RequestType)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var destination, model, provider, errorKind, prompt sql.NullString
		var cost, created string
		if err := rows.Scan(
			&e.RequestID, &e.Day, &e.RequestType, &destination, &model, &provider,
			&e.State, &errorKind, &prompt, &e.PromptTokens, &e.CompletionTokens,
			&cost, &e.Attempts, &e.LatencyMs, &created,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Destination = destination.String
		e.Model = model.String
		e.Provider = provider.String
		e.ErrorKind = errorKind.String
		e.Prompt = prompt.String
		if e.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parse audit cost %q: %w", cost, err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse audit time %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns entry counts grouped by day and state.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT day, state, count(*) AS cnt
		 FROM generation_audit GROUP BY day, state ORDER BY day DESC, state`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		if err := rows.Scan(&s.Day, &s.State, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := l.now().AddDate(0, 0, -l.cfg.RetentionDays).UTC().Format(timeLayout)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM generation_audit WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
