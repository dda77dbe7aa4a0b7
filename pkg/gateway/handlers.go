package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golix/golix-bridge/pkg/autoupdate"
	"github.com/golix/golix-bridge/pkg/logger"
	"github.com/golix/golix-bridge/pkg/market"
	"github.com/golix/golix-bridge/pkg/websearch"
)

type sendCommandRequest struct {
	Command string `json:"command"`
}

type relayRequest struct {
	Message string `json:"message"`
}

type setMessageRequest struct {
	Message string `json:"message"`
}

type autoUpdateRequest struct {
	CommitMessage string `json:"commitMessage"`
	FileContent   string `json:"fileContent"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "golix-bridge " + apiVersion,
	})
}

func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	var req sendCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeJSONError(w, http.StatusBadRequest, "commande manquante")
		return
	}

	if _, err := s.deps.Dispatcher.Dispatch(r.Context(), req.Command); err != nil {
		writeJSONError(w, http.StatusBadRequest, "commande manquante")
		return
	}

	// Mirroring the command to the shared store is best effort: a store
	// failure never fails the submission.
	if s.deps.Store != nil {
		if err := s.deps.Store.PutLatest(r.Context(), req.Command); err != nil {
			logger.WarnCF("gateway", "command store write failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"command": req.Command,
	})
}

func (s *Server) handleRelayFromChatGPT(w http.ResponseWriter, r *http.Request) {
	var req relayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message manquant")
		return
	}

	if _, err := s.deps.Dispatcher.Dispatch(r.Context(), req.Message); err != nil {
		writeJSONError(w, http.StatusBadRequest, "message manquant")
		return
	}

	// Same command, re-submitted to the peer bridge. One attempt, no
	// retry; a proxy failure is reported distinctly from a dispatch
	// failure.
	if peerURL := s.cfg.Relay.PeerURL; peerURL != "" {
		if err := s.proxyToPeer(r, peerURL, req.Message); err != nil {
			logger.ErrorCF("gateway", "peer relay failed", map[string]any{
				"peer":  peerURL,
				"error": err.Error(),
			})
			writeJSONError(w, http.StatusInternalServerError, "relais vers l'instance distante échoué")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "relayed",
		"message": req.Message,
	})
}

func (s *Server) proxyToPeer(r *http.Request, peerURL, command string) error {
	body, err := json.Marshal(sendCommandRequest{Command: command})
	if err != nil {
		return err
	}

	url := strings.TrimRight(peerURL, "/") + "/send-command"
	req, err := http.NewRequestWithContext(r.Context(), "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.peer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("peer returned HTTP " + resp.Status)
	}
	return nil
}

func (s *Server) handleGetNextMessage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.deps.Outbox.ReadAndClear(),
	})
}

func (s *Server) handleSetNextMessage(w http.ResponseWriter, r *http.Request) {
	var req setMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	s.deps.Outbox.Write(req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAutoUpdate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pipeline == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "auto-update désactivé")
		return
	}

	var req autoUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	result := s.deps.Pipeline.Run(r.Context(), req.CommitMessage, req.FileContent)
	switch {
	case result.Err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "mise à jour commitée et déploiement déclenché",
		})
	case errors.Is(result.Err, autoupdate.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, "commitMessage et fileContent sont requis")
	case errors.Is(result.Err, autoupdate.ErrDeployFailed):
		// The commit landed. The caller must know a manual redeploy may
		// be needed.
		writeJSONError(w, http.StatusInternalServerError,
			"code mis à jour mais déploiement non déclenché")
	case errors.Is(result.Err, autoupdate.ErrCommitFailed):
		writeJSONError(w, http.StatusInternalServerError, "échec du commit")
	default:
		writeJSONError(w, http.StatusInternalServerError, "échec de la lecture du fichier distant")
	}
}

func (s *Server) handleMarketPrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = "BTCUSDT"
	}

	quote, err := s.deps.Market.Price(r.Context(), symbol)
	if err != nil {
		// Price lookups never answer 500. Callers get the per-source
		// failures in a regular body.
		var lookupErr *market.LookupError
		if errors.As(err, &lookupErr) {
			writeJSON(w, http.StatusOK, map[string]any{
				"error":   "prix indisponible",
				"symbol":  lookupErr.Symbol,
				"details": lookupErr.Reasons,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"error":  "prix indisponible",
			"symbol": symbol,
		})
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleWebSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSONError(w, http.StatusBadRequest, "paramètre q manquant")
		return
	}

	resp, err := s.deps.Search.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, websearch.ErrNotConfigured) {
			writeJSON(w, http.StatusOK, map[string]string{
				"error": "aucun moteur de recherche configuré",
			})
			return
		}
		logger.ErrorCF("gateway", "web search failed", map[string]any{"error": err.Error()})
		writeJSONError(w, http.StatusInternalServerError, "recherche web échouée")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCryptoNews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.deps.News.TopHeadlines(r.Context()),
	})
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	reading, err := s.deps.Sentiment.FearGreed(r.Context())
	if err != nil {
		logger.ErrorCF("gateway", "sentiment fetch failed", map[string]any{"error": err.Error()})
		writeJSONError(w, http.StatusInternalServerError, "indice de sentiment indisponible")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}
