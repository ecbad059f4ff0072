package library

import (
	"strconv"
	"strings"
	"time"

	"shelfsync/internal/provider"
)

// Item is one library entry as reported by the library server.
type Item struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Subtitle        string            `json:"subtitle"`
	Authors         []string          `json:"authors"`
	Narrator        string            `json:"narrator"`
	Series          string            `json:"series"`
	SeriesSequence  string            `json:"series_sequence"`
	ISBN            string            `json:"isbn"`
	PublicationDate string            `json:"publication_date"`
	Publisher       string            `json:"publisher"`
	Description     string            `json:"description"`
	Genres          []string          `json:"genres"`
	Rating          float64           `json:"rating"`
	FieldSources    map[string]string `json:"field_sources,omitempty"`
	LastSyncedAt    *time.Time        `json:"last_synced_at,omitempty"`
}

// Snapshot returns the item's mergeable fields keyed by canonical field
// names. The snapshot is what the merge engine compares candidates against
// and what audit records capture as the before image.
func (i *Item) Snapshot() map[string]string {
	snapshot := map[string]string{
		provider.FieldTitle:           strings.TrimSpace(i.Title),
		provider.FieldSubtitle:        strings.TrimSpace(i.Subtitle),
		provider.FieldAuthors:         strings.Join(cleanList(i.Authors), "; "),
		provider.FieldNarrator:        strings.TrimSpace(i.Narrator),
		provider.FieldSeries:          strings.TrimSpace(i.Series),
		provider.FieldSeriesSequence:  strings.TrimSpace(i.SeriesSequence),
		provider.FieldISBN:            strings.TrimSpace(i.ISBN),
		provider.FieldPublicationDate: strings.TrimSpace(i.PublicationDate),
		provider.FieldPublisher:       strings.TrimSpace(i.Publisher),
		provider.FieldDescription:     strings.TrimSpace(i.Description),
		provider.FieldGenres:          strings.Join(cleanList(i.Genres), "; "),
		provider.FieldRating:          formatRating(i.Rating),
	}
	return snapshot
}

func formatRating(rating float64) string {
	if rating <= 0 {
		return ""
	}
	return strconv.FormatFloat(rating, 'f', -1, 64)
}

// SourceOf returns the last-known provider for a field, or "" when the
// library has no provenance for it.
func (i *Item) SourceOf(field string) string {
	if i.FieldSources == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(i.FieldSources[field]))
}

// PrimaryAuthor returns the first author, or "".
func (i *Item) PrimaryAuthor() string {
	for _, author := range i.Authors {
		if author = strings.TrimSpace(author); author != "" {
			return author
		}
	}
	return ""
}

func cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			cleaned = append(cleaned, value)
		}
	}
	return cleaned
}
