// Package cmdstore pushes each received command to a shared store so the
// browser userscript can poll it. The store keeps only the latest command
// under a fixed key.
package cmdstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	latestPath  = "chat_commands/latest"
	httpTimeout = 15 * time.Second
)

// Store is the command-store collaborator consumed by the gateway.
type Store interface {
	PutLatest(ctx context.Context, text string) error
}

// FirebaseStore writes to a Firebase Realtime Database over its REST API.
type FirebaseStore struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewFirebaseStore(databaseURL, secret string) *FirebaseStore {
	return &FirebaseStore{
		baseURL: strings.TrimRight(databaseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: httpTimeout},
	}
}

// PutLatest overwrites the latest-command record with text and the
// current timestamp in milliseconds.
func (s *FirebaseStore) PutLatest(ctx context.Context, text string) error {
	payload := map[string]any{
		"text":      text,
		"timestamp": time.Now().UnixMilli(),
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling command record: %w", err)
	}

	url := fmt.Sprintf("%s/%s.json", s.baseURL, latestPath)
	if s.secret != "" {
		url += "?auth=" + s.secret
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("writing command record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("database returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
