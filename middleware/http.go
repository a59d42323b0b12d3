package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/limiter"
)

// HeaderAPIKey is the request header carrying the api key. The api_key
// query parameter is accepted as a fallback.
const HeaderAPIKey = "X-API-Key"

// rejectedResponse is the payload returned with 429 responses.
type rejectedResponse struct {
	Error     string `json:"error"`
	Algorithm string `json:"algorithm"`
	Remaining int    `json:"remaining"`
}

// Handler wraps next with rate limit enforcement. Requests without an api
// key pass through untouched; everything else is decided by rl, with
// rejections answered as 429 and admissions annotated with the remaining
// quota header and a context decision.
func Handler(rl *limiter.RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(HeaderAPIKey)
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey == "" {
			log.Debug().Str("path", r.URL.Path).Msg("no api key on request, skipping rate limit")
			next.ServeHTTP(w, r)
			return
		}

		decision := rl.Decide(r.Context(), apiKey, r.URL.Path)
		if !decision.Allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rejectedResponse{
				Error:     "Rate limit exceeded",
				Algorithm: decision.Algorithm,
				Remaining: decision.Remaining,
			})
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		next.ServeHTTP(w, r.WithContext(withDecision(r.Context(), decision)))
	})
}
