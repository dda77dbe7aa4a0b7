// Package gateway is the HTTP surface of the bridge: command submission,
// mailbox pull, the auto-update trigger and the market/search/news helper
// routes.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golix/golix-bridge/pkg/autoupdate"
	"github.com/golix/golix-bridge/pkg/cmdstore"
	"github.com/golix/golix-bridge/pkg/config"
	"github.com/golix/golix-bridge/pkg/dispatch"
	"github.com/golix/golix-bridge/pkg/logger"
	"github.com/golix/golix-bridge/pkg/mailbox"
	"github.com/golix/golix-bridge/pkg/market"
	"github.com/golix/golix-bridge/pkg/news"
	"github.com/golix/golix-bridge/pkg/ratelimit"
	"github.com/golix/golix-bridge/pkg/sentiment"
	"github.com/golix/golix-bridge/pkg/websearch"
)

// version is set by the caller (main.go) via SetVersion.
var apiVersion = "dev"

// SetVersion sets the version string returned by the ping endpoint.
func SetVersion(v string) {
	apiVersion = v
}

// Deps holds the collaborators the handlers need. Nil optional fields
// disable the corresponding route behavior rather than the server.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Outbox     *mailbox.Mailbox
	Store      cmdstore.Store       // optional, best-effort command mirror
	Pipeline   *autoupdate.Pipeline // optional, nil when auto-update is disabled
	Market     *market.Service
	Search     *websearch.BraveClient
	News       *news.Aggregator
	Sentiment  *sentiment.Client
	Limiter    *ratelimit.Limiter
}

// Server is the bridge HTTP server.
type Server struct {
	cfg    *config.Config
	deps   Deps
	peer   *http.Client
	server *http.Server
}

// NewServer creates a new bridge HTTP server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	relayTimeout := time.Duration(cfg.Relay.TimeoutSeconds) * time.Second
	if relayTimeout <= 0 {
		relayTimeout = 15 * time.Second
	}
	return &Server{
		cfg:  cfg,
		deps: deps,
		peer: &http.Client{Timeout: relayTimeout},
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("POST /send-command", s.handleSendCommand)
	mux.HandleFunc("POST /relay-from-chatgpt", s.handleRelayFromChatGPT)
	mux.HandleFunc("GET /get-next-message", s.handleGetNextMessage)
	mux.HandleFunc("POST /set-next-message", s.handleSetNextMessage)
	mux.HandleFunc("POST /auto-update", s.handleAutoUpdate)
	mux.HandleFunc("GET /binance/price", s.handleMarketPrice)
	mux.HandleFunc("GET /web/search", s.handleWebSearch)
	mux.HandleFunc("GET /rss/crypto", s.handleCryptoNews)
	mux.HandleFunc("GET /sentiment", s.handleSentiment)

	var h http.Handler = mux
	h = s.rateLimitMiddleware(h)
	h = requestLogMiddleware(h)
	return h
}

// Start begins listening for HTTP requests on the configured host:port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		logger.InfoCF("gateway", "HTTP server starting", map[string]any{"addr": addr})
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("gateway", "HTTP server error", map[string]any{"error": err.Error()})
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
