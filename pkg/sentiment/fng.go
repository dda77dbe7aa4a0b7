// Package sentiment reads the alternative.me crypto Fear & Greed index.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIBase = "https://api.alternative.me"
	httpTimeout    = 30 * time.Second
)

type Reading struct {
	Value          string `json:"value"`
	Classification string `json:"classification"`
	Timestamp      string `json:"timestamp"`
}

type Client struct {
	apiBase string
	http    *http.Client
}

type Option func(*Client)

func WithAPIBase(base string) Option {
	return func(c *Client) {
		c.apiBase = base
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		apiBase: defaultAPIBase,
		http:    &http.Client{Timeout: httpTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FearGreed returns the latest index datapoint.
func (c *Client) FearGreed(ctx context.Context) (*Reading, error) {
	url := c.apiBase + "/fng/?limit=1&format=json"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("index API returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Data []struct {
			Value               string `json:"value"`
			ValueClassification string `json:"value_classification"`
			Timestamp           string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("parsing index response: %w", err)
	}
	if len(data.Data) == 0 {
		return nil, fmt.Errorf("index response has no datapoints")
	}

	latest := data.Data[0]
	return &Reading{
		Value:          latest.Value,
		Classification: latest.ValueClassification,
		Timestamp:      latest.Timestamp,
	}, nil
}
