package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shelfsync/internal/provider"
)

// ProviderName identifies this adapter in priority lists and audit rows.
const ProviderName = "openlibrary"

// fieldQuality reflects that Open Library data is crowd-sourced and ranks
// below curated catalogs when both supply a field.
const fieldQuality = 0.7

const maxFuzzyResults = 5

type searchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Publisher        []string `json:"publisher"`
	ISBN             []string `json:"isbn"`
	Subject          []string `json:"subject"`
}

type searchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

// Client queries the Open Library search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ provider.Adapter = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an Open Library client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("openlibrary base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name implements provider.Adapter.
func (c *Client) Name() string { return ProviderName }

// ResolveISBN looks up a record by ISBN.
func (c *Client) ResolveISBN(ctx context.Context, isbn string) (*provider.Candidate, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("q", "isbn:"+isbn)
	resp, err := c.search(ctx, params, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Docs) == 0 {
		return nil, nil
	}
	candidate := c.toCandidate(resp.Docs[0])
	return &candidate, nil
}

// ResolveTitleAuthor looks up the best record for a title/author pair.
func (c *Client) ResolveTitleAuthor(ctx context.Context, title, author string) (*provider.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("title", title)
	if author = strings.TrimSpace(author); author != "" {
		params.Set("author", author)
	}
	resp, err := c.search(ctx, params, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Docs) == 0 {
		return nil, nil
	}
	candidate := c.toCandidate(resp.Docs[0])
	return &candidate, nil
}

// ResolveFuzzy returns ordered candidates for a loose title query.
func (c *Client) ResolveFuzzy(ctx context.Context, title, author string) ([]provider.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	query := title
	if author = strings.TrimSpace(author); author != "" {
		query += " " + author
	}
	params := url.Values{}
	params.Set("q", query)
	resp, err := c.search(ctx, params, maxFuzzyResults)
	if err != nil {
		return nil, err
	}
	candidates := make([]provider.Candidate, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		candidates = append(candidates, c.toCandidate(doc))
	}
	return candidates, nil
}

func (c *Client) search(ctx context.Context, params url.Values, limit int) (*searchResponse, error) {
	endpoint, err := url.Parse(c.baseURL + "/search.json")
	if err != nil {
		return nil, provider.NewError(ProviderName, provider.KindUnknown, fmt.Errorf("parse url: %w", err))
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "key,title,subtitle,author_name,first_publish_year,publisher,isbn,subject")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, provider.NewError(ProviderName, provider.KindUnknown, fmt.Errorf("build request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.Classify(ProviderName, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.NewError(ProviderName, kindForStatus(resp.StatusCode),
			fmt.Errorf("openlibrary search returned %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, provider.NewError(ProviderName, provider.KindMalformed, fmt.Errorf("decode response: %w", err))
	}
	return &payload, nil
}

func kindForStatus(status int) provider.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return provider.KindRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return provider.KindUnauthorized
	case status == http.StatusGatewayTimeout:
		return provider.KindTimeout
	case status >= 400 && status < 500:
		return provider.KindMalformed
	default:
		return provider.KindUnknown
	}
}

func (c *Client) toCandidate(doc searchDoc) provider.Candidate {
	candidate := provider.Candidate{
		Provider:     ProviderName,
		Title:        strings.TrimSpace(doc.Title),
		Authors:      cleanList(doc.AuthorName),
		ProvenanceID: doc.Key,
	}
	if len(doc.ISBN) > 0 {
		candidate.ISBN = strings.TrimSpace(doc.ISBN[0])
	}
	candidate.SetField(provider.FieldTitle, doc.Title, fieldQuality)
	candidate.SetField(provider.FieldSubtitle, doc.Subtitle, fieldQuality)
	candidate.SetField(provider.FieldAuthors, strings.Join(candidate.Authors, "; "), fieldQuality)
	candidate.SetField(provider.FieldISBN, candidate.ISBN, fieldQuality)
	if doc.FirstPublishYear > 0 {
		candidate.SetField(provider.FieldPublicationDate, strconv.Itoa(doc.FirstPublishYear), fieldQuality)
	}
	if len(doc.Publisher) > 0 {
		candidate.SetField(provider.FieldPublisher, doc.Publisher[0], fieldQuality)
	}
	// Subject lists run long; keep the leading handful as genres.
	subjects := cleanList(doc.Subject)
	if len(subjects) > 5 {
		subjects = subjects[:5]
	}
	candidate.SetField(provider.FieldGenres, strings.Join(subjects, "; "), fieldQuality)
	return candidate
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
