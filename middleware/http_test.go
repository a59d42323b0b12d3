package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/toolink/throttle/limiter"
)

type fixedProvider struct {
	cfg *limiter.Config
}

func (p fixedProvider) Get(ctx context.Context, apiKey string) (*limiter.Config, error) {
	if p.cfg == nil || p.cfg.APIKey != apiKey {
		return nil, limiter.ErrConfigNotFound
	}
	return p.cfg, nil
}

func limitedRL(t *testing.T, maxRequests int) *limiter.RateLimiter {
	t.Helper()
	cfg := &limiter.Config{
		APIKey:        "api_key_test",
		Algorithm:     limiter.AlgorithmFixedWindow,
		MaxRequests:   maxRequests,
		WindowSeconds: 60,
	}
	return limiter.NewRateLimiter(fixedProvider{cfg: cfg}, nil)
}

func TestHandlerAdmitsAndAnnotates(t *testing.T) {
	rl := limitedRL(t, 2)
	var sawDecision bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d, ok := DecisionFromContext(r.Context()); ok && d.Allowed {
			sawDecision = true
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/data", nil)
	req.Header.Set(HeaderAPIKey, "api_key_test")
	rec := httptest.NewRecorder()
	Handler(rl, next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Errorf("X-RateLimit-Remaining = %q, want 1", rec.Header().Get("X-RateLimit-Remaining"))
	}
	if !sawDecision {
		t.Error("downstream handler should see the decision in context")
	}
}

func TestHandlerRejectsWith429(t *testing.T) {
	rl := limitedRL(t, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Handler(rl, next)

	req := httptest.NewRequest(http.MethodGet, "/v1/data?api_key=api_key_test", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/data?api_key=api_key_test", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	var body rejectedResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error == "" || body.Algorithm != limiter.AlgorithmFixedWindow || body.Remaining != 0 {
		t.Errorf("reject payload = %+v", body)
	}
}

func TestHandlerPassesThroughWithoutKey(t *testing.T) {
	rl := limitedRL(t, 1)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	Handler(rl, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/open", nil))
	if !called {
		t.Error("requests without an api key must pass through")
	}
}
