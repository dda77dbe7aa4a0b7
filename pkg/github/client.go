// Package github is a minimal GitHub contents API client: read a file's
// current blob SHA, commit a replacement. Just the two calls the
// auto-update pipeline needs.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIBase = "https://api.github.com"
	httpTimeout    = 30 * time.Second
)

type Client struct {
	token   string
	repo    string // "owner/name"
	branch  string
	apiBase string
	http    *http.Client
}

type Option func(*Client)

// WithAPIBase points the client at a different API root. Tests use this
// with an httptest server.
func WithAPIBase(base string) Option {
	return func(c *Client) {
		c.apiBase = base
	}
}

func NewClient(token, repo, branch string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		repo:    repo,
		branch:  branch,
		apiBase: defaultAPIBase,
		http:    &http.Client{Timeout: httpTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FileSHA fetches the current blob SHA for path on the configured branch.
// It is never cached: a stale SHA makes the subsequent commit fail.
func (c *Client) FileSHA(ctx context.Context, path string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s", c.apiBase, c.repo, path, c.branch)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching file metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("GitHub API returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var meta struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("parsing file metadata: %w", err)
	}
	if meta.SHA == "" {
		return "", fmt.Errorf("file metadata has no sha")
	}
	return meta.SHA, nil
}

// CommitFile replaces path's content on the configured branch. sha is the
// expected-current-state precondition from FileSHA; GitHub rejects the
// commit when it no longer matches.
func (c *Client) CommitFile(ctx context.Context, path, message string, content []byte, sha string) error {
	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"sha":     sha,
		"branch":  c.branch,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling commit payload: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/contents/%s", c.apiBase, c.repo, path)
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("committing file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "golix-bridge")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
