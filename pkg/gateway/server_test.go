package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golix/golix-bridge/pkg/autoupdate"
	"github.com/golix/golix-bridge/pkg/config"
	"github.com/golix/golix-bridge/pkg/dispatch"
	"github.com/golix/golix-bridge/pkg/mailbox"
	"github.com/golix/golix-bridge/pkg/market"
	"github.com/golix/golix-bridge/pkg/news"
	"github.com/golix/golix-bridge/pkg/ratelimit"
	"github.com/golix/golix-bridge/pkg/sentiment"
	"github.com/golix/golix-bridge/pkg/websearch"
)

type respFunc func(ctx context.Context, text string) (string, error)

func (f respFunc) Complete(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

type fakeStore struct {
	texts []string
	err   error
}

func (s *fakeStore) PutLatest(ctx context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

type fakeHost struct {
	commitErr error
}

func (h *fakeHost) FileSHA(ctx context.Context, path string) (string, error) {
	return "abc123", nil
}

func (h *fakeHost) CommitFile(ctx context.Context, path, message string, content []byte, sha string) error {
	return h.commitErr
}

type fakeDeployer struct {
	err error
}

func (d *fakeDeployer) TriggerDeploy(ctx context.Context) error {
	return d.err
}

type testBridge struct {
	cfg    *config.Config
	outbox *mailbox.Mailbox
	store  *fakeStore
	deps   *Deps
}

func newTestServer(t *testing.T, responder dispatch.Responder, mutate func(*testBridge)) *httptest.Server {
	t.Helper()

	cfg := config.DefaultConfig()
	outbox := mailbox.New()
	store := &fakeStore{}
	deps := Deps{
		Dispatcher: dispatch.NewDispatcher(responder, outbox),
		Outbox:     outbox,
		Store:      store,
		Market:     market.NewService(""),
		Search:     websearch.NewBraveClient("", 5),
		News:       news.NewAggregator(nil, 6),
		Sentiment:  sentiment.NewClient(),
	}

	b := &testBridge{cfg: cfg, outbox: outbox, store: store, deps: &deps}
	if mutate != nil {
		mutate(b)
	}

	server := httptest.NewServer(NewServer(cfg, *b.deps).Handler())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, decoded
}

func TestPing(t *testing.T) {
	server := newTestServer(t, nil, nil)
	resp, body := getJSON(t, server.URL+"/ping")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "OK" {
		t.Errorf("status field = %v", body["status"])
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestSendCommandMissing(t *testing.T) {
	server := newTestServer(t, nil, nil)
	for _, body := range []string{`{}`, `{"command":""}`, `{"command":"   "}`, `not json`} {
		resp, decoded := postJSON(t, server.URL+"/send-command", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
		if decoded["status"] != "error" {
			t.Errorf("body %q: status field = %v", body, decoded["status"])
		}
	}
}

func TestSendCommandFixedIntent(t *testing.T) {
	server := newTestServer(t, nil, nil)

	resp, body := postJSON(t, server.URL+"/send-command", `{"command":"sécurité maximale"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "success" || body["command"] != "sécurité maximale" {
		t.Errorf("body = %v", body)
	}

	_, pulled := getJSON(t, server.URL+"/get-next-message")
	if pulled["message"] != "Sécurité maximale activée." {
		t.Errorf("mailbox message = %q", pulled["message"])
	}

	_, again := getJSON(t, server.URL+"/get-next-message")
	if again["message"] != "" {
		t.Errorf("mailbox not cleared, got %q", again["message"])
	}
}

func TestSendCommandFreeformUsesResponder(t *testing.T) {
	responder := respFunc(func(ctx context.Context, text string) (string, error) {
		if text != "quelle heure est-il" {
			t.Errorf("responder got %q", text)
		}
		return "Il est midi.", nil
	})
	server := newTestServer(t, responder, nil)

	resp, _ := postJSON(t, server.URL+"/send-command", `{"command":"quelle heure est-il"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	_, pulled := getJSON(t, server.URL+"/get-next-message")
	if pulled["message"] != "Il est midi." {
		t.Errorf("mailbox message = %q", pulled["message"])
	}
}

func TestSendCommandResponderFailureStillAccepted(t *testing.T) {
	responder := respFunc(func(ctx context.Context, text string) (string, error) {
		return "", errors.New("upstream down")
	})
	server := newTestServer(t, responder, nil)

	resp, body := postJSON(t, server.URL+"/send-command", `{"command":"question libre"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want accepted despite responder failure", resp.StatusCode)
	}
	if body["status"] != "success" {
		t.Errorf("status field = %v", body["status"])
	}

	_, pulled := getJSON(t, server.URL+"/get-next-message")
	if !strings.HasPrefix(pulled["message"].(string), "Désolé") {
		t.Errorf("mailbox message = %q, want apology", pulled["message"])
	}
}

func TestSendCommandMirrorsToStore(t *testing.T) {
	var store *fakeStore
	server := newTestServer(t, nil, func(b *testBridge) {
		store = b.store
	})

	postJSON(t, server.URL+"/send-command", `{"command":"mode résilience"}`)
	if len(store.texts) != 1 || store.texts[0] != "mode résilience" {
		t.Errorf("store.texts = %v", store.texts)
	}
}

func TestSendCommandStoreFailureIgnored(t *testing.T) {
	server := newTestServer(t, nil, func(b *testBridge) {
		b.store.err = errors.New("database unreachable")
	})

	resp, _ := postJSON(t, server.URL+"/send-command", `{"command":"mode résilience"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, store failure must not fail the request", resp.StatusCode)
	}
}

func TestRelayMissingMessage(t *testing.T) {
	server := newTestServer(t, nil, nil)
	resp, _ := postJSON(t, server.URL+"/relay-from-chatgpt", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRelayWithoutPeer(t *testing.T) {
	server := newTestServer(t, nil, nil)
	resp, body := postJSON(t, server.URL+"/relay-from-chatgpt", `{"message":"analyse marché"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "relayed" || body["message"] != "analyse marché" {
		t.Errorf("body = %v", body)
	}
}

func TestRelayProxiesToPeer(t *testing.T) {
	var peerGot sendCommandRequest
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send-command" {
			t.Errorf("peer path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&peerGot); err != nil {
			t.Errorf("peer decode: %v", err)
		}
		w.Write([]byte(`{"status":"success","command":"x"}`))
	}))
	defer peer.Close()

	server := newTestServer(t, nil, func(b *testBridge) {
		b.cfg.Relay.PeerURL = peer.URL
	})

	resp, _ := postJSON(t, server.URL+"/relay-from-chatgpt", `{"message":"analyse marché"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if peerGot.Command != "analyse marché" {
		t.Errorf("peer received command %q", peerGot.Command)
	}
}

func TestRelayPeerFailure(t *testing.T) {
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer peer.Close()

	server := newTestServer(t, nil, func(b *testBridge) {
		b.cfg.Relay.PeerURL = peer.URL
	})

	resp, body := postJSON(t, server.URL+"/relay-from-chatgpt", `{"message":"analyse marché"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 on proxy failure", resp.StatusCode)
	}
	if body["status"] != "error" {
		t.Errorf("body = %v", body)
	}

	// Dispatch already ran; the mailbox holds the reply even though the
	// proxy leg failed.
	_, pulled := getJSON(t, server.URL+"/get-next-message")
	if pulled["message"] != "Analyse du marché en cours." {
		t.Errorf("mailbox message = %q", pulled["message"])
	}
}

func TestSetThenGetNextMessage(t *testing.T) {
	server := newTestServer(t, nil, nil)

	resp, body := postJSON(t, server.URL+"/set-next-message", `{"message":"manuel"}`)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("set: status = %d, body = %v", resp.StatusCode, body)
	}

	_, pulled := getJSON(t, server.URL+"/get-next-message")
	if pulled["message"] != "manuel" {
		t.Errorf("message = %q", pulled["message"])
	}
}

func TestAutoUpdateDisabled(t *testing.T) {
	server := newTestServer(t, nil, nil)
	resp, _ := postJSON(t, server.URL+"/auto-update", `{"commitMessage":"m","fileContent":"c"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestAutoUpdateValidation(t *testing.T) {
	server := newTestServer(t, nil, func(b *testBridge) {
		b.deps.Pipeline = autoupdate.NewPipeline(&fakeHost{}, &fakeDeployer{}, "main.py")
	})

	resp, _ := postJSON(t, server.URL+"/auto-update", `{"commitMessage":"","fileContent":"c"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAutoUpdateSuccess(t *testing.T) {
	server := newTestServer(t, nil, func(b *testBridge) {
		b.deps.Pipeline = autoupdate.NewPipeline(&fakeHost{}, &fakeDeployer{}, "main.py")
	})

	resp, body := postJSON(t, server.URL+"/auto-update", `{"commitMessage":"fix","fileContent":"print(1)"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "success" {
		t.Errorf("body = %v", body)
	}
}

func TestAutoUpdateDeployFailureIsDistinct(t *testing.T) {
	server := newTestServer(t, nil, func(b *testBridge) {
		b.deps.Pipeline = autoupdate.NewPipeline(
			&fakeHost{},
			&fakeDeployer{err: errors.New("render down")},
			"main.py",
		)
	})

	resp, body := postJSON(t, server.URL+"/auto-update", `{"commitMessage":"fix","fileContent":"print(1)"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "non déclenché") {
		t.Errorf("message = %q, want partial-failure wording", msg)
	}
}

func TestAutoUpdateCommitFailure(t *testing.T) {
	server := newTestServer(t, nil, func(b *testBridge) {
		b.deps.Pipeline = autoupdate.NewPipeline(
			&fakeHost{commitErr: errors.New("sha mismatch")},
			&fakeDeployer{},
			"main.py",
		)
	})

	resp, body := postJSON(t, server.URL+"/auto-update", `{"commitMessage":"fix","fileContent":"print(1)"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "commit") {
		t.Errorf("message = %q", msg)
	}
}

func TestMarketPriceNever500(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	server := newTestServer(t, nil, func(b *testBridge) {
		b.deps.Market = market.NewService("", market.WithBaseURLs(failing.URL, failing.URL, ""))
	})

	resp, body := getJSON(t, server.URL+"/binance/price?symbol=BTCUSDT")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, price route must not fail", resp.StatusCode)
	}
	if body["error"] == nil {
		t.Errorf("body = %v, want error field", body)
	}
}

func TestMarketPriceSuccess(t *testing.T) {
	binance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"64250.10"}`))
	}))
	defer binance.Close()

	server := newTestServer(t, nil, func(b *testBridge) {
		b.deps.Market = market.NewService("", market.WithBaseURLs(binance.URL, "", ""))
	})

	resp, body := getJSON(t, server.URL+"/binance/price")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["source"] != "binance" || body["symbol"] != "BTCUSDT" {
		t.Errorf("body = %v", body)
	}
}

func TestWebSearchMissingQuery(t *testing.T) {
	server := newTestServer(t, nil, nil)
	resp, _ := getJSON(t, server.URL+"/web/search")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebSearchNotConfigured(t *testing.T) {
	server := newTestServer(t, nil, nil)
	resp, body := getJSON(t, server.URL+"/web/search?q=bitcoin")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want controlled body", resp.StatusCode)
	}
	if body["error"] == nil {
		t.Errorf("body = %v, want error field", body)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	server := newTestServer(t, nil, func(b *testBridge) {
		b.deps.Limiter = ratelimit.NewLimiter(ratelimit.Config{Enabled: true, RequestsPerMinute: 2})
	})

	for range 2 {
		resp, _ := getJSON(t, server.URL+"/ping")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d within burst", resp.StatusCode)
		}
	}
	resp, _ := getJSON(t, server.URL+"/ping")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
}
