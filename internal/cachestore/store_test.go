package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"shelfsync/internal/provider"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFingerprintDeterministicOverNormalizedInput(t *testing.T) {
	a := Fingerprint("GoogleBooks", "isbn", "  978-0765326355 ")
	b := Fingerprint("googlebooks", "ISBN", "978-0765326355")
	if a != b {
		t.Fatal("expected normalized queries to share a fingerprint")
	}

	c := Fingerprint("googlebooks", "isbn", "9780765326355x")
	if a == c {
		t.Fatal("expected distinct queries to differ")
	}

	d := Fingerprint("googlebooks", "title_author", "dune", "")
	e := Fingerprint("googlebooks", "title_author", "", "dune")
	if d == e {
		t.Fatal("expected part boundaries to matter")
	}
}

func TestRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	candidate := &provider.Candidate{Provider: "googlebooks", Title: "Dune", ISBN: "9780441013593"}
	candidate.SetField(provider.FieldTitle, "Dune", 0.9)

	fp := Fingerprint("googlebooks", "isbn", "9780441013593")
	if err := store.Put(ctx, fp, candidate, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, lookup, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lookup != Hit {
		t.Fatalf("expected hit, got %v", lookup)
	}
	if got.Title != "Dune" || got.Field(provider.FieldTitle) != "Dune" {
		t.Fatalf("unexpected candidate %+v", got)
	}
}

func TestNegativeEntry(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	fp := Fingerprint("openlibrary", "isbn", "0000000000")
	if err := store.Put(ctx, fp, nil, time.Hour); err != nil {
		t.Fatalf("put negative: %v", err)
	}

	candidate, lookup, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lookup != Negative {
		t.Fatalf("expected negative, got %v", lookup)
	}
	if candidate != nil {
		t.Fatalf("expected nil candidate, got %+v", candidate)
	}
}

func TestMissForUnknownFingerprint(t *testing.T) {
	store := openStore(t)

	_, lookup, err := store.Get(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lookup != Miss {
		t.Fatalf("expected miss, got %v", lookup)
	}
}

func TestExpiryReportsMiss(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	fp := Fingerprint("googlebooks", "isbn", "123")
	if err := store.Put(ctx, fp, &provider.Candidate{Title: "Dune"}, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, lookup, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lookup != Miss {
		t.Fatalf("expected miss after expiry, got %v", lookup)
	}
}

func TestNegativeExpiresBeforePositive(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	positive := Fingerprint("googlebooks", "isbn", "pos")
	negative := Fingerprint("googlebooks", "isbn", "neg")
	if err := store.Put(ctx, positive, &provider.Candidate{Title: "Dune"}, time.Hour); err != nil {
		t.Fatalf("put positive: %v", err)
	}
	if err := store.Put(ctx, negative, nil, time.Minute); err != nil {
		t.Fatalf("put negative: %v", err)
	}

	store.now = func() time.Time { return now.Add(30 * time.Minute) }
	if _, lookup, _ := store.Get(ctx, negative); lookup != Miss {
		t.Fatalf("expected negative entry expired, got %v", lookup)
	}
	if _, lookup, _ := store.Get(ctx, positive); lookup != Hit {
		t.Fatalf("expected positive entry alive, got %v", lookup)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	fp := Fingerprint("googlebooks", "isbn", "123")
	if err := store.Put(ctx, fp, nil, time.Hour); err != nil {
		t.Fatalf("put negative: %v", err)
	}
	if err := store.Put(ctx, fp, &provider.Candidate{Title: "Dune"}, time.Hour); err != nil {
		t.Fatalf("put positive: %v", err)
	}

	candidate, lookup, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lookup != Hit || candidate.Title != "Dune" {
		t.Fatalf("expected overwrite to win, got %v %+v", lookup, candidate)
	}
}

func TestPurgeExpiredRemovesOnlyExpired(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	fresh := Fingerprint("googlebooks", "isbn", "fresh")
	stale := Fingerprint("googlebooks", "isbn", "stale")
	if err := store.Put(ctx, fresh, &provider.Candidate{Title: "Fresh"}, time.Hour); err != nil {
		t.Fatalf("put fresh: %v", err)
	}
	if err := store.Put(ctx, stale, &provider.Candidate{Title: "Stale"}, time.Second); err != nil {
		t.Fatalf("put stale: %v", err)
	}

	store.now = func() time.Time { return now.Add(time.Minute) }
	removed, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 || stats.Expired != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPutRetriesTransientWriteFailure(t *testing.T) {
	store := openStore(t)
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

	fp := Fingerprint("googlebooks", "isbn", "flaky")
	if err := store.Put(ctx, fp, &provider.Candidate{Title: "Dune"}, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d attempts", calls)
	}

	candidate, lookup, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lookup != Hit || candidate.Title != "Dune" {
		t.Fatalf("expected entry persisted after retry, got %v %+v", lookup, candidate)
	}
}

func TestPutGivesUpAfterBoundedRetries(t *testing.T) {
	store := openStore(t)

	var calls int
	store.exec = func(ctx context.Context, query string, args ...any) (sql.Result, error) {
		calls++
		return nil, errors.New("disk I/O error")
	}

	if err := store.Put(context.Background(), "fp", nil, time.Hour); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls != writeAttempts {
		t.Fatalf("expected %d attempts, got %d", writeAttempts, calls)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := store.Put(ctx, Fingerprint("p", "isbn", key), nil, time.Hour); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
}
