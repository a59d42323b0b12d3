package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/apikey"
	"github.com/toolink/throttle/limiter"
	"github.com/toolink/throttle/loadtest"
)

type createKeyRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAPIKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createKeyRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		key := apikey.New(req.Name)
		if err := s.keys.Create(r.Context(), key); err != nil {
			log.Error().Err(err).Msg("api key create failed")
			writeError(w, http.StatusInternalServerError, "failed to store api key")
			return
		}
		writeJSON(w, http.StatusOK, key)
	case http.MethodGet:
		keys, err := s.keys.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list api keys")
			return
		}
		if keys == nil {
			keys = []*apikey.Key{}
		}
		writeJSON(w, http.StatusOK, keys)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type createConfigRequest struct {
	APIKey        string `json:"api_key"`
	Algorithm     string `json:"algorithm"`
	MaxRequests   int    `json:"max_requests"`
	WindowSeconds int    `json:"window_seconds"`
}

func (s *Server) handleConfigs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createConfigRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if _, err := s.keys.Get(r.Context(), req.APIKey); err != nil {
			if errors.Is(err, apikey.ErrKeyNotFound) {
				writeError(w, http.StatusNotFound, "API key not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "api key lookup failed")
			return
		}

		cfg, err := limiter.NewConfig(req.APIKey, req.Algorithm, req.MaxRequests, req.WindowSeconds)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.configs.Put(r.Context(), cfg); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store config")
			return
		}
		// A new config supersedes whatever state the old one accumulated,
		// across all algorithm kinds.
		s.rl.Purge(cfg.APIKey)
		writeJSON(w, http.StatusOK, cfg)
	case http.MethodGet:
		configs, err := s.configs.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list configs")
			return
		}
		if configs == nil {
			configs = []*limiter.Config{}
		}
		writeJSON(w, http.StatusOK, configs)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type admittedResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Algorithm      string `json:"algorithm"`
	RemainingQuota int    `json:"remaining_quota"`
	Timestamp      string `json:"timestamp"`
}

type rejectedResponse struct {
	Error     string `json:"error"`
	Algorithm string `json:"algorithm"`
	Remaining int    `json:"remaining"`
}

func (s *Server) handleProtectedTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	apiKey := r.URL.Query().Get("api_key")
	if apiKey == "" {
		writeError(w, http.StatusBadRequest, "api_key query parameter is required")
		return
	}

	decision := s.rl.Decide(r.Context(), apiKey, "/api/protected/test")
	if !decision.Allowed {
		writeJSON(w, http.StatusTooManyRequests, rejectedResponse{
			Error:     "Rate limit exceeded",
			Algorithm: decision.Algorithm,
			Remaining: decision.Remaining,
		})
		return
	}
	writeJSON(w, http.StatusOK, admittedResponse{
		Success:        true,
		Message:        "Request allowed",
		Algorithm:      decision.Algorithm,
		RemainingQuota: decision.Remaining,
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summary, err := s.audit.Summary(r.Context(), r.URL.Query().Get("api_key"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	records, err := s.audit.Recent(r.Context(), r.URL.Query().Get("api_key"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read recent logs")
		return
	}
	if records == nil {
		records = []limiter.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleLoadTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var params loadtest.Params
	if !s.decodeJSON(w, r, &params) {
		return
	}
	if _, err := s.keys.Get(r.Context(), params.APIKey); err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "api key lookup failed")
		return
	}

	result, err := loadtest.Run(r.Context(), s.rl, params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.audit.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear audit log")
		return
	}
	s.rl.Reset()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Statistics and rate limiters reset successfully",
	})
}

type systemStatusResponse struct {
	Status              string         `json:"status"`
	ActiveAPIKeys       int            `json:"active_api_keys"`
	ActiveConfigs       int            `json:"active_configs"`
	TotalRequestsLogged int            `json:"total_requests_logged"`
	ActiveRateLimiters  map[string]int `json:"active_rate_limiters"`
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	keyCount, err := s.keys.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count api keys")
		return
	}
	configCount, err := s.configs.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count configs")
		return
	}
	logCount, err := s.audit.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count audit records")
		return
	}
	writeJSON(w, http.StatusOK, systemStatusResponse{
		Status:              "operational",
		ActiveAPIKeys:       keyCount,
		ActiveConfigs:       configCount,
		TotalRequestsLogged: logCount,
		ActiveRateLimiters:  s.rl.Active(),
	})
}
