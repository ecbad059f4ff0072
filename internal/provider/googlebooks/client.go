package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shelfsync/internal/provider"
)

// ProviderName identifies this adapter in priority lists and audit rows.
const ProviderName = "googlebooks"

// fieldQuality is the quality score assigned to fields parsed from volume
// payloads. Google Books metadata is curated, so it ranks above crowd-sourced
// sources when both supply a field.
const fieldQuality = 0.9

const maxFuzzyResults = 5

type volumeInfo struct {
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	Categories          []string `json:"categories"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type searchResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

// Client queries the Google Books volumes API.
type Client struct {
	apiKey     string
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

// New creates a Google Books client. The API key is optional; anonymous
// requests are allowed at a lower quota.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("googlebooks base url required")
	}
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
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

// ResolveISBN looks up a volume by ISBN.
func (c *Client) ResolveISBN(ctx context.Context, isbn string) (*provider.Candidate, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, nil
	}
	resp, err := c.search(ctx, `isbn:`+isbn, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	candidate := c.toCandidate(resp.Items[0])
	return &candidate, nil
}

// ResolveTitleAuthor looks up the best volume for an exact title/author pair.
func (c *Client) ResolveTitleAuthor(ctx context.Context, title, author string) (*provider.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	query := `intitle:"` + title + `"`
	if author = strings.TrimSpace(author); author != "" {
		query += ` inauthor:"` + author + `"`
	}
	resp, err := c.search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	candidate := c.toCandidate(resp.Items[0])
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
	resp, err := c.search(ctx, query, maxFuzzyResults)
	if err != nil {
		return nil, err
	}
	candidates := make([]provider.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		candidates = append(candidates, c.toCandidate(item))
	}
	return candidates, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) (*searchResponse, error) {
	endpoint, err := url.Parse(c.baseURL + "/volumes")
	if err != nil {
		return nil, provider.NewError(ProviderName, provider.KindUnknown, fmt.Errorf("parse url: %w", err))
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
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
			fmt.Errorf("googlebooks search returned %d", resp.StatusCode))
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

func (c *Client) toCandidate(v volume) provider.Candidate {
	info := v.VolumeInfo
	candidate := provider.Candidate{
		Provider:     ProviderName,
		Title:        strings.TrimSpace(info.Title),
		Authors:      cleanList(info.Authors),
		ISBN:         pickISBN(info),
		ProvenanceID: v.ID,
	}
	candidate.SetField(provider.FieldTitle, info.Title, fieldQuality)
	candidate.SetField(provider.FieldSubtitle, info.Subtitle, fieldQuality)
	candidate.SetField(provider.FieldAuthors, strings.Join(candidate.Authors, "; "), fieldQuality)
	candidate.SetField(provider.FieldISBN, candidate.ISBN, fieldQuality)
	candidate.SetField(provider.FieldPublisher, info.Publisher, fieldQuality)
	candidate.SetField(provider.FieldPublicationDate, info.PublishedDate, fieldQuality)
	candidate.SetField(provider.FieldDescription, info.Description, fieldQuality)
	candidate.SetField(provider.FieldGenres, strings.Join(cleanList(info.Categories), "; "), fieldQuality)
	return candidate
}

func pickISBN(info volumeInfo) string {
	var isbn10 string
	for _, ident := range info.IndustryIdentifiers {
		switch ident.Type {
		case "ISBN_13":
			return strings.TrimSpace(ident.Identifier)
		case "ISBN_10":
			isbn10 = strings.TrimSpace(ident.Identifier)
		}
	}
	return isbn10
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
