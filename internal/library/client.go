package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is the library boundary the sync orchestrator consumes. Listing is
// offset/limit paged so passes are resumable; updates are per-item field
// patches.
type Client interface {
	ListItems(ctx context.Context, offset, limit int) ([]Item, error)
	UpdateItem(ctx context.Context, id string, fields map[string]string) error
}

// HTTPClient talks to the library server's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewHTTPClient creates a library API client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*HTTPClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("library base url required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type listResponse struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// ListItems fetches one page of library items.
func (c *HTTPClient) ListItems(ctx context.Context, offset, limit int) ([]Item, error) {
	endpoint, err := url.Parse(c.baseURL + "/api/items")
	if err != nil {
		return nil, fmt.Errorf("parse library url: %w", err)
	}
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("library list returned %d", resp.StatusCode)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return payload.Items, nil
}

// UpdateItem patches the given fields on one item.
func (c *HTTPClient) UpdateItem(ctx context.Context, id string, fields map[string]string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("item id required")
	}
	if len(fields) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	endpoint := c.baseURL + "/api/items/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("library update returned %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
