package auditstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	appendAttempts = 3
	appendRetryGap = 50 * time.Millisecond
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS audit_records (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    item_id     TEXT NOT NULL,
    method      TEXT NOT NULL,
    decision    TEXT NOT NULL,
    confidence  REAL NOT NULL,
    before_json TEXT NOT NULL,
    after_json  TEXT NOT NULL,
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_records (run_id);
CREATE INDEX IF NOT EXISTS idx_audit_item ON audit_records (item_id);
`

// Record is one immutable resolution decision.
type Record struct {
	ID         int64
	RunID      string
	ItemID     string
	Method     string
	Decision   string
	Confidence float64
	Before     map[string]string
	After      map[string]string
	CreatedAt  time.Time
}

// Store persists audit records in SQLite. Appends are safe under concurrent
// writers; SQLite serializes them.
type Store struct {
	db   *sql.DB
	path string
	exec func(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open initializes or connects to the audit database under dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "audit.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	store.exec = db.ExecContext
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes one audit record, retrying transient failures a bounded
// number of times.
func (s *Store) Append(ctx context.Context, record Record) error {
	beforeJSON, err := json.Marshal(record.Before)
	if err != nil {
		return fmt.Errorf("marshal before snapshot: %w", err)
	}
	afterJSON, err := json.Marshal(record.After)
	if err != nil {
		return fmt.Errorf("marshal after snapshot: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var lastErr error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(appendRetryGap):
			}
		}
		_, err := s.exec(ctx,
			`INSERT INTO audit_records (run_id, item_id, method, decision, confidence, before_json, after_json, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.RunID,
			record.ItemID,
			record.Method,
			record.Decision,
			record.Confidence,
			string(beforeJSON),
			string(afterJSON),
			createdAt.UTC().Format(time.RFC3339Nano),
		)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("append audit record: %w", lastErr)
}

// ListByRun returns a run's records in append order.
func (s *Store) ListByRun(ctx context.Context, runID string) ([]Record, error) {
	return s.list(ctx, `SELECT `+recordColumns+` FROM audit_records WHERE run_id = ? ORDER BY id`, runID)
}

// ListByItem returns an item's history, newest first.
func (s *Store) ListByItem(ctx context.Context, itemID string) ([]Record, error) {
	return s.list(ctx, `SELECT `+recordColumns+` FROM audit_records WHERE item_id = ? ORDER BY id DESC`, itemID)
}

// Recent returns the latest records across all runs.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.list(ctx, `SELECT `+recordColumns+` FROM audit_records ORDER BY id DESC LIMIT ?`, limit)
}

const recordColumns = "id, run_id, item_id, method, decision, confidence, before_json, after_json, created_at"

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		record     Record
		beforeJSON string
		afterJSON  string
		createdRaw string
	)
	if err := rows.Scan(
		&record.ID,
		&record.RunID,
		&record.ItemID,
		&record.Method,
		&record.Decision,
		&record.Confidence,
		&beforeJSON,
		&afterJSON,
		&createdRaw,
	); err != nil {
		return Record{}, fmt.Errorf("scan audit record: %w", err)
	}

	if err := json.Unmarshal([]byte(beforeJSON), &record.Before); err != nil {
		record.Before = nil
	}
	if err := json.Unmarshal([]byte(afterJSON), &record.After); err != nil {
		record.After = nil
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		record.CreatedAt = created
	}
	return record, nil
}
