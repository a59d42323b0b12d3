package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/toolink/throttle/apikey"
	"github.com/toolink/throttle/auditlog"
	"github.com/toolink/throttle/configstore"
	"github.com/toolink/throttle/limiter"
)

type fixture struct {
	mux   *http.ServeMux
	keys  apikey.Store
	audit *auditlog.MemorySink
}

func newFixture() *fixture {
	configs := configstore.NewMemoryStore()
	keys := apikey.NewMemoryStore()
	audit := auditlog.NewMemorySink()
	rl := limiter.NewRateLimiter(configs, audit)
	mux := http.NewServeMux()
	NewServer(rl, configs, keys, audit).Register(mux)
	return &fixture{mux: mux, keys: keys, audit: audit}
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) issueKey(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/api-keys", createKeyRequest{Name: "test"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create key: status %d: %s", rec.Code, rec.Body.String())
	}
	var key apikey.Key
	if err := json.NewDecoder(rec.Body).Decode(&key); err != nil {
		t.Fatal(err)
	}
	return key.APIKey
}

func (f *fixture) configure(t *testing.T, apiKey, algorithm string, maxRequests, windowSeconds int) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, "/api/rate-limit-configs", createConfigRequest{
		APIKey:        apiKey,
		Algorithm:     algorithm,
		MaxRequests:   maxRequests,
		WindowSeconds: windowSeconds,
	})
}

func TestCreateAndListAPIKeys(t *testing.T) {
	f := newFixture()
	f.issueKey(t)
	f.issueKey(t)

	rec := f.do(t, http.MethodGet, "/api/api-keys", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list keys: status %d", rec.Code)
	}
	var keys []apikey.Key
	if err := json.NewDecoder(rec.Body).Decode(&keys); err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("listed %d keys, want 2", len(keys))
	}
}

func TestCreateConfigValidation(t *testing.T) {
	f := newFixture()
	key := f.issueKey(t)

	if rec := f.configure(t, "api_key_unknown", limiter.AlgorithmTokenBucket, 5, 60); rec.Code != http.StatusNotFound {
		t.Errorf("unknown api key: status %d, want 404", rec.Code)
	}
	if rec := f.configure(t, key, "quantum_bucket", 5, 60); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown algorithm: status %d, want 400", rec.Code)
	}
	if rec := f.configure(t, key, limiter.AlgorithmTokenBucket, 5, 0); rec.Code != http.StatusBadRequest {
		t.Errorf("zero window: status %d, want 400", rec.Code)
	}
	if rec := f.configure(t, key, limiter.AlgorithmTokenBucket, 5, 60); rec.Code != http.StatusOK {
		t.Errorf("valid config: status %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedEndpointEnforcesLimit(t *testing.T) {
	f := newFixture()
	key := f.issueKey(t)
	f.configure(t, key, limiter.AlgorithmFixedWindow, 2, 60)

	target := "/api/protected/test?api_key=" + key
	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodGet, target, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}

	rec := f.do(t, http.MethodGet, target, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", rec.Code)
	}
	var body rejectedResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Algorithm != limiter.AlgorithmFixedWindow || body.Remaining != 0 || body.Error == "" {
		t.Errorf("reject payload = %+v", body)
	}
}

func TestProtectedEndpointNoConfig(t *testing.T) {
	f := newFixture()
	key := f.issueKey(t)

	rec := f.do(t, http.MethodGet, "/api/protected/test?api_key="+key, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var body admittedResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Algorithm != limiter.AlgorithmNoLimit || body.RemainingQuota != limiter.NoLimitRemaining {
		t.Errorf("no-limit payload = %+v", body)
	}
}

func TestConfigReplacementResetsQuota(t *testing.T) {
	f := newFixture()
	key := f.issueKey(t)
	f.configure(t, key, limiter.AlgorithmFixedWindow, 1, 60)

	target := "/api/protected/test?api_key=" + key
	f.do(t, http.MethodGet, target, nil)
	if rec := f.do(t, http.MethodGet, target, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("budget should be exhausted, got %d", rec.Code)
	}

	f.configure(t, key, limiter.AlgorithmFixedWindow, 3, 60)
	rec := f.do(t, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("first request under new config: status %d, want 200", rec.Code)
	}
	var body admittedResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.RemainingQuota != 2 {
		t.Errorf("RemainingQuota = %d, want the new config's budget minus one", body.RemainingQuota)
	}
}

func TestAnalyticsAndSystemStatus(t *testing.T) {
	f := newFixture()
	key := f.issueKey(t)
	f.configure(t, key, limiter.AlgorithmTokenBucket, 1, 60)

	target := "/api/protected/test?api_key=" + key
	f.do(t, http.MethodGet, target, nil)
	f.do(t, http.MethodGet, target, nil) // blocked

	// Audit records are emitted asynchronously.
	waitForCount(t, f.audit, 2)

	rec := f.do(t, http.MethodGet, "/api/analytics/summary", nil)
	var summary auditlog.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalRequests != 2 || summary.AllowedRequests != 1 || summary.BlockedRequests != 1 {
		t.Errorf("summary = %+v", summary)
	}

	rec = f.do(t, http.MethodGet, "/api/analytics/recent-logs?limit=1", nil)
	var records []limiter.AuditRecord
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].APIKey != key {
		t.Errorf("recent logs = %+v, want exactly one record for %s", records, key)
	}

	rec = f.do(t, http.MethodGet, "/api/system-status", nil)
	var status systemStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "operational" || status.ActiveAPIKeys != 1 || status.ActiveConfigs != 1 {
		t.Errorf("system status = %+v", status)
	}
	if status.ActiveRateLimiters[limiter.AlgorithmTokenBucket] != 1 {
		t.Errorf("active limiters = %+v", status.ActiveRateLimiters)
	}
}

func TestResetStats(t *testing.T) {
	f := newFixture()
	key := f.issueKey(t)
	f.configure(t, key, limiter.AlgorithmFixedWindow, 1, 60)

	target := "/api/protected/test?api_key=" + key
	f.do(t, http.MethodGet, target, nil)
	if rec := f.do(t, http.MethodGet, target, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatal("budget should be exhausted")
	}
	waitForCount(t, f.audit, 2)

	if rec := f.do(t, http.MethodDelete, "/api/reset-stats", nil); rec.Code != http.StatusOK {
		t.Fatalf("reset: status %d", rec.Code)
	}

	if n, _ := f.audit.Count(context.Background()); n != 0 {
		t.Errorf("audit count after reset = %d, want 0", n)
	}
	if rec := f.do(t, http.MethodGet, target, nil); rec.Code != http.StatusOK {
		t.Error("limiter state should be clean after reset")
	}
}

func waitForCount(t *testing.T, audit *auditlog.MemorySink, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := audit.Count(context.Background()); n >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	n, _ := audit.Count(context.Background())
	t.Fatalf("audit count = %d, want %d", n, want)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture()
	cases := []struct {
		method string
		target string
	}{
		{http.MethodDelete, "/api/api-keys"},
		{http.MethodPut, "/api/rate-limit-configs"},
		{http.MethodPost, "/api/protected/test"},
		{http.MethodGet, "/api/load-test"},
		{http.MethodGet, "/api/reset-stats"},
	}
	for _, tc := range cases {
		rec := f.do(t, tc.method, tc.target, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status %d, want 405", tc.method, tc.target, rec.Code)
		}
	}
}

func TestLoadTestEndpoint(t *testing.T) {
	f := newFixture()
	key := f.issueKey(t)
	f.configure(t, key, limiter.AlgorithmFixedWindow, 3, 60)

	rec := f.do(t, http.MethodPost, "/api/load-test", map[string]any{
		"api_key":             key,
		"requests_per_second": 10,
		"duration_seconds":    1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("load test: status %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Allowed int `json:"allowed"`
		Blocked int `json:"blocked"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Allowed != 3 {
		t.Errorf("allowed = %d, want the window budget of 3", result.Allowed)
	}

	rec = f.do(t, http.MethodPost, "/api/load-test", map[string]any{
		"api_key":             "api_key_unknown",
		"requests_per_second": 10,
		"duration_seconds":    1,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown key: status %d, want 404", rec.Code)
	}
}
