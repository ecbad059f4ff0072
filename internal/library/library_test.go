package library_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shelfsync/internal/library"
	"shelfsync/internal/provider"
)

func TestSnapshotJoinsListsAndTrims(t *testing.T) {
	item := library.Item{
		ID:      "item-1",
		Title:   "  The Way of Kings ",
		Authors: []string{"Brandon Sanderson", " ", ""},
		Genres:  []string{"Fantasy", "Fiction"},
	}

	snapshot := item.Snapshot()
	if snapshot[provider.FieldTitle] != "The Way of Kings" {
		t.Fatalf("expected trimmed title, got %q", snapshot[provider.FieldTitle])
	}
	if snapshot[provider.FieldAuthors] != "Brandon Sanderson" {
		t.Fatalf("expected cleaned authors, got %q", snapshot[provider.FieldAuthors])
	}
	if snapshot[provider.FieldGenres] != "Fantasy; Fiction" {
		t.Fatalf("expected joined genres, got %q", snapshot[provider.FieldGenres])
	}
	if snapshot[provider.FieldNarrator] != "" {
		t.Fatalf("expected empty narrator, got %q", snapshot[provider.FieldNarrator])
	}
}

func TestSnapshotIncludesRating(t *testing.T) {
	rated := library.Item{ID: "item-1", Title: "Dune", Rating: 4.5}
	if got := rated.Snapshot()[provider.FieldRating]; got != "4.5" {
		t.Fatalf("expected rating in snapshot, got %q", got)
	}

	unrated := library.Item{ID: "item-2", Title: "Dune"}
	if got := unrated.Snapshot()[provider.FieldRating]; got != "" {
		t.Fatalf("expected empty rating for unrated item, got %q", got)
	}
}

func TestSourceOfNormalizes(t *testing.T) {
	item := library.Item{FieldSources: map[string]string{provider.FieldTitle: " GoogleBooks "}}
	if got := item.SourceOf(provider.FieldTitle); got != "googlebooks" {
		t.Fatalf("expected normalized source, got %q", got)
	}
	if got := item.SourceOf(provider.FieldNarrator); got != "" {
		t.Fatalf("expected empty source, got %q", got)
	}
}

func TestPrimaryAuthorSkipsBlanks(t *testing.T) {
	item := library.Item{Authors: []string{"  ", "Brandon Sanderson"}}
	if got := item.PrimaryAuthor(); got != "Brandon Sanderson" {
		t.Fatalf("expected first non-blank author, got %q", got)
	}
	empty := library.Item{}
	if empty.PrimaryAuthor() != "" {
		t.Fatal("expected empty author for empty list")
	}
}

func TestListItemsPagesAndAuthorizes(t *testing.T) {
	var gotAuth, gotOffset, gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotOffset = r.URL.Query().Get("offset")
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []library.Item{{ID: "item-1", Title: "Dune"}},
			"total": 1,
		})
	}))
	defer server.Close()

	client, err := library.NewHTTPClient(server.URL, "secret", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	items, err := client.ListItems(context.Background(), 10, 25)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Dune" {
		t.Fatalf("unexpected items %+v", items)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotOffset != "10" || gotLimit != "25" {
		t.Fatalf("unexpected paging %s/%s", gotOffset, gotLimit)
	}
}

func TestUpdateItemPatchesFields(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := library.NewHTTPClient(server.URL, "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	fields := map[string]string{provider.FieldTitle: "The Way of Kings"}
	if err := client.UpdateItem(context.Background(), "item-1", fields); err != nil {
		t.Fatalf("update item: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/items/item-1" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotBody["fields"][provider.FieldTitle] != "The Way of Kings" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestUpdateItemSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := library.NewHTTPClient(server.URL, "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.UpdateItem(context.Background(), "item-1", map[string]string{"title": "x"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
