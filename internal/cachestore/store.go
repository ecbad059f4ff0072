package cachestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"shelfsync/internal/provider"
)

// Lookup classifies the outcome of a cache read.
type Lookup int

const (
	// Miss means no usable entry exists; the caller should query the provider.
	Miss Lookup = iota
	// Hit means a cached candidate is available.
	Hit
	// Negative means the provider previously confirmed not-found and the
	// entry has not yet expired.
	Negative
)

const (
	// writeAttempts bounds retries for failed cache writes before the
	// failure surfaces as a pass-level warning.
	writeAttempts = 3
	writeRetryGap = 50 * time.Millisecond
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
    fingerprint TEXT PRIMARY KEY,
    payload     TEXT,
    created_at  TEXT NOT NULL,
    ttl_seconds INTEGER NOT NULL
);
`

// Stats summarizes cache contents for diagnostics.
type Stats struct {
	Total    int
	Negative int
	Expired  int
}

// Store is a durable fingerprint → candidate cache backed by SQLite.
// Concurrent readers and writers on the same key are safe; last write wins,
// which is acceptable because results for one fingerprint are stable.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
	exec func(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open initializes or connects to the cache database under dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "cache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
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
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
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

// Get returns the cached candidate for fingerprint. Expired entries report
// Miss so the caller re-queries the provider.
func (s *Store) Get(ctx context.Context, fingerprint string) (*provider.Candidate, Lookup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, created_at, ttl_seconds FROM cache_entries WHERE fingerprint = ?`,
		fingerprint,
	)

	var (
		payload    sql.NullString
		createdRaw string
		ttlSeconds int64
	)
	if err := row.Scan(&payload, &createdRaw, &ttlSeconds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Miss, nil
		}
		return nil, Miss, fmt.Errorf("read cache entry: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return nil, Miss, nil
	}
	if s.now().After(createdAt.Add(time.Duration(ttlSeconds) * time.Second)) {
		return nil, Miss, nil
	}

	if !payload.Valid || payload.String == "" {
		return nil, Negative, nil
	}

	var candidate provider.Candidate
	if err := json.Unmarshal([]byte(payload.String), &candidate); err != nil {
		// Corrupt payloads behave like misses; the next Put overwrites them.
		return nil, Miss, nil
	}
	return &candidate, Hit, nil
}

// Put stores a candidate (or a negative entry when candidate is nil) under
// fingerprint with the given TTL. Writes are retried a bounded number of
// times before the error is surfaced.
func (s *Store) Put(ctx context.Context, fingerprint string, candidate *provider.Candidate, ttl time.Duration) error {
	var payload any
	if candidate != nil {
		data, err := json.Marshal(candidate)
		if err != nil {
			return fmt.Errorf("marshal candidate: %w", err)
		}
		payload = string(data)
	}

	createdAt := s.now().UTC().Format(time.RFC3339Nano)
	ttlSeconds := int64(ttl / time.Second)

	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(writeRetryGap):
			}
		}
		_, err := s.exec(ctx,
			`INSERT INTO cache_entries (fingerprint, payload, created_at, ttl_seconds)
             VALUES (?, ?, ?, ?)
             ON CONFLICT(fingerprint) DO UPDATE SET
                 payload = excluded.payload,
                 created_at = excluded.created_at,
                 ttl_seconds = excluded.ttl_seconds`,
			fingerprint, payload, createdAt, ttlSeconds,
		)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("write cache entry: %w", lastErr)
}

// PurgeExpired deletes entries whose TTL has elapsed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries
         WHERE datetime(created_at, '+' || ttl_seconds || ' seconds') < datetime(?)`,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired entries: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all cache entries.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats reports cache contents for diagnostics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cache_entries`)
	if err := row.Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("count cache entries: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cache_entries WHERE payload IS NULL OR payload = ''`)
	if err := row.Scan(&stats.Negative); err != nil {
		return stats, fmt.Errorf("count negative entries: %w", err)
	}
	row = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM cache_entries
         WHERE datetime(created_at, '+' || ttl_seconds || ' seconds') < datetime(?)`,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err := row.Scan(&stats.Expired); err != nil {
		return stats, fmt.Errorf("count expired entries: %w", err)
	}
	return stats, nil
}
