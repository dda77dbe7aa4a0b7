package cmdstore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPutLatest(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" {
			t.Fatalf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/chat_commands/latest.json" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("auth") != "secret-token" {
			t.Fatalf("auth = %q", r.URL.Query().Get("auth"))
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	s := NewFirebaseStore(server.URL, "secret-token")
	if err := s.PutLatest(t.Context(), "sécurité maximale"); err != nil {
		t.Fatalf("PutLatest: %v", err)
	}

	if payload["text"] != "sécurité maximale" {
		t.Errorf("text = %v", payload["text"])
	}
	if _, ok := payload["timestamp"].(float64); !ok {
		t.Errorf("timestamp missing or not a number: %v", payload["timestamp"])
	}
}

func TestPutLatestUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Permission denied"}`))
	}))
	defer server.Close()

	s := NewFirebaseStore(server.URL, "bad")
	if err := s.PutLatest(t.Context(), "x"); err == nil {
		t.Fatal("expected error for 401, got nil")
	}
}
