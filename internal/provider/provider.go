package provider

import (
	"context"
	"strings"
)

// Canonical metadata field names shared by candidates, library snapshots,
// and merge decisions.
const (
	FieldTitle           = "title"
	FieldSubtitle        = "subtitle"
	FieldAuthors         = "authors"
	FieldNarrator        = "narrator"
	FieldSeries          = "series"
	FieldSeriesSequence  = "series_sequence"
	FieldISBN            = "isbn"
	FieldPublicationDate = "publication_date"
	FieldPublisher       = "publisher"
	FieldDescription     = "description"
	FieldGenres          = "genres"
	FieldRating          = "rating"
)

// FieldValue is a candidate field with a provider-assigned quality score.
type FieldValue struct {
	Value   string  `json:"value"`
	Quality float64 `json:"quality"`
}

// Candidate is one provider's answer for an item. Immutable once produced;
// discarded after merge.
type Candidate struct {
	Provider     string                `json:"provider"`
	Title        string                `json:"title"`
	Authors      []string              `json:"authors"`
	ISBN         string                `json:"isbn"`
	Confidence   float64               `json:"confidence"`
	Fields       map[string]FieldValue `json:"fields"`
	ProvenanceID string                `json:"provenance_id"`
}

// Field returns the trimmed value for name, or "" when the field is absent.
// Providers sometimes send explicit empty values where a string is expected;
// those are treated identically to omitted fields.
func (c *Candidate) Field(name string) string {
	if c == nil || c.Fields == nil {
		return ""
	}
	return strings.TrimSpace(c.Fields[name].Value)
}

// SetField records a field value, dropping values that normalize to empty.
func (c *Candidate) SetField(name, value string, quality float64) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if c.Fields == nil {
		c.Fields = make(map[string]FieldValue)
	}
	c.Fields[name] = FieldValue{Value: value, Quality: quality}
}

// Adapter is the uniform query interface one external metadata source
// implements. All three resolve operations return (nil, nil) for a confirmed
// not-found; errors carry a Kind for retry and attempt-history
// classification. Implementations own their authentication and parsing.
type Adapter interface {
	Name() string
	ResolveISBN(ctx context.Context, isbn string) (*Candidate, error)
	ResolveTitleAuthor(ctx context.Context, title, author string) (*Candidate, error)
	ResolveFuzzy(ctx context.Context, title, author string) ([]Candidate, error)
}
