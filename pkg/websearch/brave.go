// Package websearch wraps the Brave web-search API for the /web/search
// route.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIBase = "https://api.search.brave.com"
	httpTimeout    = 30 * time.Second
	defaultCount   = 5
)

// ErrNotConfigured means no Brave API key is set. The gateway turns
// this into a controlled error body rather than a failure.
var ErrNotConfigured = errors.New("no web search API key configured")

type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type SearchResponse struct {
	Engine  string         `json:"engine"`
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

type BraveClient struct {
	apiKey     string
	maxResults int
	apiBase    string
	http       *http.Client
}

type Option func(*BraveClient)

func WithAPIBase(base string) Option {
	return func(c *BraveClient) {
		c.apiBase = base
	}
}

func NewBraveClient(apiKey string, maxResults int, opts ...Option) *BraveClient {
	if maxResults <= 0 {
		maxResults = defaultCount
	}
	c := &BraveClient{
		apiKey:     apiKey,
		maxResults: maxResults,
		apiBase:    defaultAPIBase,
		http:       &http.Client{Timeout: httpTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a fresh-results web search and returns title/URL pairs.
func (c *BraveClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	q := strings.TrimSpace(query)
	reqURL := fmt.Sprintf("%s/res/v1/web/search?q=%s&count=%d&freshness=pd",
		c.apiBase, url.QueryEscape(q), c.maxResults)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Brave API returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Web struct {
			Results []struct {
				Title string `json:"title"`
				URL   string `json:"url"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	results := make([]SearchResult, 0, len(data.Web.Results))
	for _, r := range data.Web.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL})
	}

	return &SearchResponse{Engine: "brave", Query: q, Results: results}, nil
}
