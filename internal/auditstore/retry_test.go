package auditstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func openRetryStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendRetriesTransientWriteFailure(t *testing.T) {
	store := openRetryStore(t)
	ctx := context.Background()

	realExec := store.exec
	var calls int
	store.exec = func(ctx context.Context, query string, args ...any) (sql.Result, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("database is locked")
		}
		return realExec(ctx, query, args...)
	}

	record := Record{
		RunID:      "run-1",
		ItemID:     "item-1",
		Method:     "isbn",
		Decision:   "updated",
		Confidence: 1.0,
		Before:     map[string]string{"title": "Old Title"},
		After:      map[string]string{"title": "New Title"},
	}
	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("append: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d attempts", calls)
	}

	records, err := store.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("list by run: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected record persisted after retry, got %d", len(records))
	}
	if records[0].After["title"] != "New Title" {
		t.Fatalf("unexpected after snapshot %+v", records[0].After)
	}
}

func TestAppendGivesUpAfterBoundedRetries(t *testing.T) {
	store := openRetryStore(t)
	ctx := context.Background()

	var calls int
	store.exec = func(ctx context.Context, query string, args ...any) (sql.Result, error) {
		calls++
		return nil, errors.New("disk I/O error")
	}

	if err := store.Append(ctx, Record{RunID: "run-1", ItemID: "item-1"}); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls != appendAttempts {
		t.Fatalf("expected %d attempts, got %d", appendAttempts, calls)
	}

	records, err := store.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("list by run: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
