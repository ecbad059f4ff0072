package openlibrary_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelfsync/internal/provider"
	"shelfsync/internal/provider/openlibrary"
)

const docPayload = `{
  "numFound": 1,
  "docs": [
    {
      "key": "/works/OL8479867W",
      "title": "The Way of Kings",
      "author_name": ["Brandon Sanderson"],
      "first_publish_year": 2010,
      "publisher": ["Tor Books", "Gollancz"],
      "isbn": ["9780765326355"],
      "subject": ["Fantasy", "Epic", "Magic", "Kings", "War", "Swords"]
    }
  ]
}`

func newClient(t *testing.T, handler http.HandlerFunc) *openlibrary.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := openlibrary.New(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestResolveTitleAuthorParsesDoc(t *testing.T) {
	var gotTitle, gotAuthor string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.URL.Query().Get("title")
		gotAuthor = r.URL.Query().Get("author")
		w.Write([]byte(docPayload))
	})

	candidate, err := client.ResolveTitleAuthor(context.Background(), "The Way of Kings", "Brandon Sanderson")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gotTitle != "The Way of Kings" || gotAuthor != "Brandon Sanderson" {
		t.Fatalf("unexpected query %q/%q", gotTitle, gotAuthor)
	}
	if candidate == nil || candidate.Title != "The Way of Kings" {
		t.Fatalf("unexpected candidate %+v", candidate)
	}
	if candidate.ISBN != "9780765326355" {
		t.Fatalf("unexpected isbn %q", candidate.ISBN)
	}
	if got := candidate.Field(provider.FieldPublicationDate); got != "2010" {
		t.Fatalf("unexpected publication date %q", got)
	}
	if got := candidate.Field(provider.FieldGenres); got != "Fantasy; Epic; Magic; Kings; War" {
		t.Fatalf("expected subjects truncated to five, got %q", got)
	}
	if candidate.Fields[provider.FieldTitle].Quality != 0.7 {
		t.Fatalf("unexpected quality %f", candidate.Fields[provider.FieldTitle].Quality)
	}
}

func TestResolveISBNNotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"numFound": 0, "docs": []}`))
	})

	candidate, err := client.ResolveISBN(context.Background(), "0000000000")
	if err != nil {
		t.Fatalf("expected not-found without error, got %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected nil candidate, got %+v", candidate)
	}
}

func TestRateLimitMapsToKind(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.ResolveFuzzy(context.Background(), "anything", "")
	if provider.KindOf(err) != provider.KindRateLimited {
		t.Fatalf("expected rate limited kind, got %v", err)
	}
}
