package googlebooks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelfsync/internal/provider"
	"shelfsync/internal/provider/googlebooks"
)

const volumePayload = `{
  "totalItems": 1,
  "items": [
    {
      "id": "vol-1",
      "volumeInfo": {
        "title": "The Way of Kings",
        "subtitle": "Book One of the Stormlight Archive",
        "authors": ["Brandon Sanderson"],
        "publisher": "Tor Books",
        "publishedDate": "2010-08-31",
        "categories": ["Fiction", "Fantasy"],
        "industryIdentifiers": [
          {"type": "ISBN_10", "identifier": "0765326353"},
          {"type": "ISBN_13", "identifier": "9780765326355"}
        ]
      }
    }
  ]
}`

func newClient(t *testing.T, handler http.HandlerFunc) *googlebooks.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := googlebooks.New(server.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestResolveISBNParsesVolume(t *testing.T) {
	var gotQuery string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(volumePayload))
	})

	candidate, err := client.ResolveISBN(context.Background(), "9780765326355")
	if err != nil {
		t.Fatalf("resolve isbn: %v", err)
	}
	if gotQuery != "isbn:9780765326355" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if candidate == nil {
		t.Fatal("expected candidate")
	}
	if candidate.Title != "The Way of Kings" {
		t.Fatalf("unexpected title %q", candidate.Title)
	}
	if candidate.ISBN != "9780765326355" {
		t.Fatalf("expected ISBN-13 preferred, got %q", candidate.ISBN)
	}
	if candidate.ProvenanceID != "vol-1" {
		t.Fatalf("unexpected provenance %q", candidate.ProvenanceID)
	}
	if got := candidate.Field(provider.FieldGenres); got != "Fiction; Fantasy" {
		t.Fatalf("unexpected genres %q", got)
	}
	if candidate.Fields[provider.FieldTitle].Quality != 0.9 {
		t.Fatalf("unexpected field quality %f", candidate.Fields[provider.FieldTitle].Quality)
	}
}

func TestResolveTitleAuthorBuildsScopedQuery(t *testing.T) {
	var gotQuery string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(volumePayload))
	})

	candidate, err := client.ResolveTitleAuthor(context.Background(), "The Way of Kings", "Brandon Sanderson")
	if err != nil {
		t.Fatalf("resolve title author: %v", err)
	}
	if candidate == nil {
		t.Fatal("expected candidate")
	}
	want := `intitle:"The Way of Kings" inauthor:"Brandon Sanderson"`
	if gotQuery != want {
		t.Fatalf("query = %q, want %q", gotQuery, want)
	}
}

func TestResolveReturnsNotFoundForEmptyResults(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalItems": 0}`))
	})

	candidate, err := client.ResolveISBN(context.Background(), "0000000000")
	if err != nil {
		t.Fatalf("expected not-found without error, got %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected nil candidate, got %+v", candidate)
	}
}

func TestStatusCodesMapToErrorKinds(t *testing.T) {
	cases := map[int]provider.Kind{
		http.StatusTooManyRequests:     provider.KindRateLimited,
		http.StatusUnauthorized:        provider.KindUnauthorized,
		http.StatusForbidden:           provider.KindUnauthorized,
		http.StatusGatewayTimeout:      provider.KindTimeout,
		http.StatusBadRequest:          provider.KindMalformed,
		http.StatusInternalServerError: provider.KindUnknown,
	}
	for status, want := range cases {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := client.ResolveISBN(context.Background(), "123")
		if provider.KindOf(err) != want {
			t.Fatalf("status %d: expected kind %s, got %v", status, want, err)
		}
	}
}

func TestMalformedBodyIsMalformedKind(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [`))
	})

	_, err := client.ResolveISBN(context.Background(), "123")
	if provider.KindOf(err) != provider.KindMalformed {
		t.Fatalf("expected malformed kind, got %v", err)
	}
}

func TestResolveFuzzyReturnsOrderedCandidates(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "totalItems": 2,
  "items": [
    {"id": "a", "volumeInfo": {"title": "First Match"}},
    {"id": "b", "volumeInfo": {"title": "Second Match"}}
  ]
}`))
	})

	candidates, err := client.ResolveFuzzy(context.Background(), "match", "")
	if err != nil {
		t.Fatalf("resolve fuzzy: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Title != "First Match" || candidates[1].Title != "Second Match" {
		t.Fatalf("unexpected order %+v", candidates)
	}
}
