// Package deploy triggers a redeploy of the bridge's own Render service.
package deploy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIBase = "https://api.render.com"
	httpTimeout    = 30 * time.Second
)

type RenderClient struct {
	apiKey    string
	serviceID string
	apiBase   string
	http      *http.Client
}

type Option func(*RenderClient)

func WithAPIBase(base string) Option {
	return func(c *RenderClient) {
		c.apiBase = base
	}
}

func NewRenderClient(apiKey, serviceID string, opts ...Option) *RenderClient {
	c := &RenderClient{
		apiKey:    apiKey,
		serviceID: serviceID,
		apiBase:   defaultAPIBase,
		http:      &http.Client{Timeout: httpTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TriggerDeploy starts a new deploy of the configured service. It returns
// once Render has accepted the request; it does not wait for the deploy
// to finish.
func (c *RenderClient) TriggerDeploy(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/services/%s/deploys", c.apiBase, c.serviceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("triggering deploy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Render API returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
