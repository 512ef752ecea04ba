package server

import (
	"crypto/hmac"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clickship/internal/clarity"
	"clickship/internal/model"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type statsResponse struct {
	Today      uint64 `json:"today"`
	Total      uint64 `json:"total"`
	Source     string `json:"source"`
	Cached     bool   `json:"cached"`
	AgeSeconds int64  `json:"age_seconds"`
}

type webhookResponse struct {
	Success   bool          `json:"success"`
	Processed int           `json:"processed"`
	Counter   model.Counter `json:"counter"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status line is already out; encode failures have nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: message})
}

// handleStats serves the lightweight GM counter pair with freshness
// metadata. The snapshot is preferred; with no GM section yet the durable
// counter backs it up.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Snapshot()
	if snap.Gm != nil && snap.Gm.Today != nil && snap.Gm.Total != nil {
		age := time.Since(snap.GmUpdatedAt)
		writeJSON(w, http.StatusOK, statsResponse{
			Today:      *snap.Gm.Today,
			Total:      *snap.Gm.Total,
			Source:     snap.Gm.Source,
			Cached:     age <= s.cfg.StatsTTL,
			AgeSeconds: int64(age.Seconds()),
		})
		return
	}

	if s.store != nil {
		counter, err := s.store.LoadCounter(r.Context())
		if err == nil && counter.Total > 0 {
			writeJSON(w, http.StatusOK, statsResponse{
				Today:  counter.Today,
				Total:  counter.Total,
				Source: "store",
			})
			return
		}
		if err != nil {
			s.logger.Warn("counter fallback failed", zap.Error(err))
		}
	}

	writeError(w, http.StatusServiceUnavailable, "stats not available yet")
}

func (s *Server) handleGm(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Snapshot()
	if snap.Gm == nil {
		writeError(w, http.StatusServiceUnavailable, "gm stats not available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap.Gm)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Snapshot()
	if snap.Messages == nil {
		writeError(w, http.StatusServiceUnavailable, "messages not available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap.Messages)
}

func (s *Server) handlePolls(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Snapshot()
	if snap.Polls == nil {
		writeError(w, http.StatusServiceUnavailable, "polls not available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap.Polls)
}

// handleVotingStats reads per-user voting counters live rather than from
// the snapshot, since arbitrary principals can be asked about.
func (s *Server) handleVotingStats(w http.ResponseWriter, r *http.Request) {
	principal := chi.URLParam(r, "principal")
	if _, err := clarity.ParsePrincipal(principal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid principal")
		return
	}
	stats := s.voting.FetchUserStats(r.Context(), principal)
	writeJSON(w, http.StatusOK, stats)
}

// handleWebhook receives chainhook deliveries. Authentication is always
// required; deployments without a token get no webhook at all.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebhookToken == "" {
		writeError(w, http.StatusServiceUnavailable, "webhook not configured")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload model.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	defer r.Body.Close()

	now := time.Now().UTC()
	events := make([]model.WebhookEvent, 0, len(payload.Apply))
	for _, event := range payload.Apply {
		if event.TxID == "" {
			continue
		}
		event.ReceivedAt = now
		events = append(events, event)
	}

	counter := s.bumpLocal(uint64(len(events)), now)
	if s.store != nil && len(events) > 0 {
		if _, err := s.store.InsertGmEvents(r.Context(), events); err != nil {
			s.logger.Warn("event persist failed", zap.Error(err))
		}
		if stored, err := s.store.BumpCounter(r.Context(), uint64(len(events))); err == nil {
			counter = stored
		} else {
			s.logger.Warn("counter persist failed", zap.Error(err))
		}
	}

	if len(events) > 0 {
		s.refresher.KickAfter()
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Success:   true,
		Processed: len(events),
		Counter:   counter,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return hmac.Equal([]byte(token), []byte(s.cfg.WebhookToken))
}

// bumpLocal advances the in-memory counter, resetting the daily figure on
// day rollover.
func (s *Server) bumpLocal(n uint64, now time.Time) model.Counter {
	day := now.Format("2006-01-02")

	s.counterMu.Lock()
	defer s.counterMu.Unlock()
	if s.counterDay != day {
		s.counterDay = day
		s.counter.Today = 0
	}
	s.counter.Total += n
	s.counter.Today += n
	return s.counter
}
