package auditstore_test

import (
	"context"
	"testing"

	"shelfsync/internal/auditstore"
)

func openStore(t *testing.T) *auditstore.Store {
	t.Helper()
	store, err := auditstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndListByRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	records := []auditstore.Record{
		{RunID: "run-1", ItemID: "item-a", Method: "isbn", Decision: "updated", Confidence: 1.0,
			Before: map[string]string{"title": "old"}, After: map[string]string{"title": "new"}},
		{RunID: "run-1", ItemID: "item-b", Method: "none", Decision: "failed", Confidence: 0},
		{RunID: "run-2", ItemID: "item-a", Method: "title_author", Decision: "unchanged", Confidence: 0.96},
	}
	for _, record := range records {
		if err := store.Append(ctx, record); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("list by run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for run-1, got %d", len(got))
	}
	if got[0].ItemID != "item-a" || got[1].ItemID != "item-b" {
		t.Fatalf("expected append order, got %s then %s", got[0].ItemID, got[1].ItemID)
	}
	if got[0].Before["title"] != "old" || got[0].After["title"] != "new" {
		t.Fatalf("snapshots not preserved: %+v", got[0])
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatal("expected created timestamp to be set")
	}
}

func TestListByItemNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, runID := range []string{"run-1", "run-2", "run-3"} {
		record := auditstore.Record{RunID: runID, ItemID: "item-a", Method: "isbn", Decision: "unchanged", Confidence: 1.0}
		if err := store.Append(ctx, record); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.ListByItem(ctx, "item-a")
	if err != nil {
		t.Fatalf("list by item: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].RunID != "run-3" || got[2].RunID != "run-1" {
		t.Fatalf("expected newest first, got %s ... %s", got[0].RunID, got[2].RunID)
	}
}

func TestRecentLimits(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record := auditstore.Record{RunID: "run-1", ItemID: "item", Method: "isbn", Decision: "unchanged"}
		if err := store.Append(ctx, record); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestAppendSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := auditstore.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	record := auditstore.Record{RunID: "run-1", ItemID: "item-a", Method: "isbn", Decision: "updated", Confidence: 1.0}
	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := auditstore.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected durable record, got %d", len(got))
	}
}
