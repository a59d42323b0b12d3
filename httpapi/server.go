// Package httpapi exposes the management and decision endpoints over HTTP:
// api key issuance, rate limit config administration, a protected test
// endpoint, analytics and the load test harness.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/apikey"
	"github.com/toolink/throttle/auditlog"
	"github.com/toolink/throttle/configstore"
	"github.com/toolink/throttle/limiter"
)

const maxBodyBytes = 1 << 20

// AuditStore is the sink/query pair the server needs for analytics and
// reset. Both the memory and redis sinks satisfy it.
type AuditStore interface {
	auditlog.Sink
	auditlog.Query
}

// Server wires the stores and the dispatcher into HTTP handlers.
type Server struct {
	rl      *limiter.RateLimiter
	configs configstore.Store
	keys    apikey.Store
	audit   AuditStore
}

// NewServer creates the HTTP API server.
func NewServer(rl *limiter.RateLimiter, configs configstore.Store, keys apikey.Store, audit AuditStore) *Server {
	return &Server{
		rl:      rl,
		configs: configs,
		keys:    keys,
		audit:   audit,
	}
}

// Register installs all routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/api-keys", s.handleAPIKeys)
	mux.HandleFunc("/api/rate-limit-configs", s.handleConfigs)
	mux.HandleFunc("/api/protected/test", s.handleProtectedTest)
	mux.HandleFunc("/api/analytics/summary", s.handleAnalyticsSummary)
	mux.HandleFunc("/api/analytics/recent-logs", s.handleRecentLogs)
	mux.HandleFunc("/api/load-test", s.handleLoadTest)
	mux.HandleFunc("/api/reset-stats", s.handleResetStats)
	mux.HandleFunc("/api/system-status", s.handleSystemStatus)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
