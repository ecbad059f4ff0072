package testsupport

import (
	"context"
	"strings"
	"sync"

	"shelfsync/internal/library"
	"shelfsync/internal/provider"
)

// FakeAdapter is a scriptable provider adapter. Unset handlers behave as
// not-found. Call counts are safe for concurrent use.
type FakeAdapter struct {
	AdapterName string
	Open        bool

	ISBNFunc        func(ctx context.Context, isbn string) (*provider.Candidate, error)
	TitleAuthorFunc func(ctx context.Context, title, author string) (*provider.Candidate, error)
	FuzzyFunc       func(ctx context.Context, title, author string) ([]provider.Candidate, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ provider.Adapter = (*FakeAdapter)(nil)

func (f *FakeAdapter) Name() string {
	if f.AdapterName == "" {
		return "fake"
	}
	return f.AdapterName
}

// CircuitOpen reports the scripted circuit state.
func (f *FakeAdapter) CircuitOpen() bool { return f.Open }

func (f *FakeAdapter) ResolveISBN(ctx context.Context, isbn string) (*provider.Candidate, error) {
	f.count("isbn")
	if f.ISBNFunc == nil {
		return nil, nil
	}
	return f.ISBNFunc(ctx, isbn)
}

func (f *FakeAdapter) ResolveTitleAuthor(ctx context.Context, title, author string) (*provider.Candidate, error) {
	f.count("title_author")
	if f.TitleAuthorFunc == nil {
		return nil, nil
	}
	return f.TitleAuthorFunc(ctx, title, author)
}

func (f *FakeAdapter) ResolveFuzzy(ctx context.Context, title, author string) ([]provider.Candidate, error) {
	f.count("fuzzy")
	if f.FuzzyFunc == nil {
		return nil, nil
	}
	return f.FuzzyFunc(ctx, title, author)
}

// Calls returns how often the named operation ran.
func (f *FakeAdapter) Calls(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[operation]
}

func (f *FakeAdapter) count(operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[operation]++
}

// Candidate builds a minimal candidate for the given provider with optional
// extra fields at the given quality.
func Candidate(providerName, title, author string, quality float64, fields map[string]string) provider.Candidate {
	candidate := provider.Candidate{
		Provider: providerName,
		Title:    title,
		Authors:  []string{author},
	}
	candidate.SetField(provider.FieldTitle, title, quality)
	candidate.SetField(provider.FieldAuthors, author, quality)
	for name, value := range fields {
		candidate.SetField(name, value, quality)
	}
	return candidate
}

// FakeLibrary is an in-memory library client. Updates mutate the stored
// items so repeated passes observe their own writes.
type FakeLibrary struct {
	mu      sync.Mutex
	items   []library.Item
	Updates map[string]map[string]string
	// UpdateErr, when set, fails every UpdateItem call.
	UpdateErr error
}

var _ library.Client = (*FakeLibrary)(nil)

// NewFakeLibrary seeds the client with items.
func NewFakeLibrary(items ...library.Item) *FakeLibrary {
	return &FakeLibrary{items: items, Updates: make(map[string]map[string]string)}
}

func (f *FakeLibrary) ListItems(ctx context.Context, offset, limit int) ([]library.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset >= len(f.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	page := make([]library.Item, end-offset)
	copy(page, f.items[offset:end])
	return page, nil
}

func (f *FakeLibrary) UpdateItem(ctx context.Context, id string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}

	recorded := make(map[string]string, len(fields))
	for name, value := range fields {
		recorded[name] = value
	}
	f.Updates[id] = recorded

	for i := range f.items {
		if f.items[i].ID != id {
			continue
		}
		applyFields(&f.items[i], fields)
		break
	}
	return nil
}

// Item returns a copy of the stored item by id.
func (f *FakeLibrary) Item(id string) (library.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID == id {
			return item, true
		}
	}
	return library.Item{}, false
}

func applyFields(item *library.Item, fields map[string]string) {
	for name, value := range fields {
		switch name {
		case provider.FieldTitle:
			item.Title = value
		case provider.FieldSubtitle:
			item.Subtitle = value
		case provider.FieldAuthors:
			item.Authors = splitList(value)
		case provider.FieldNarrator:
			item.Narrator = value
		case provider.FieldSeries:
			item.Series = value
		case provider.FieldSeriesSequence:
			item.SeriesSequence = value
		case provider.FieldISBN:
			item.ISBN = value
		case provider.FieldPublicationDate:
			item.PublicationDate = value
		case provider.FieldPublisher:
			item.Publisher = value
		case provider.FieldDescription:
			item.Description = value
		case provider.FieldGenres:
			item.Genres = splitList(value)
		}
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
