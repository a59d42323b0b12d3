package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrConfigNotFound is returned by a ConfigProvider when no config exists
// for an api key. It is not a failure: the dispatcher treats it as an
// unconditional admit with the no-limit sentinel tag.
var ErrConfigNotFound = errors.New("limiter: config not found")

// ConfigProvider resolves the active rate limit config for an api key.
// It must reflect the most recently created config (last-write-wins).
type ConfigProvider interface {
	Get(ctx context.Context, apiKey string) (*Config, error)
}

// AuditSink receives one record per decision. Delivery is best-effort: the
// dispatcher never lets a sink failure block or change an admission outcome.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// RateLimiter dispatches admission decisions: it resolves the config for a
// key, selects or lazily creates the matching algorithm state, applies the
// decision under the per-key lock and emits an audit record.
type RateLimiter struct {
	configs       ConfigProvider
	sink          AuditSink
	states        *StateStore
	now           func() time.Time
	recordTimeout time.Duration
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithClock overrides the time source used by the algorithm state.
// Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(rl *RateLimiter) {
		if now != nil {
			rl.now = now
		}
	}
}

// WithRecordTimeout bounds how long a fire-and-forget audit write may take
// before it is abandoned. Defaults to 5 seconds.
func WithRecordTimeout(d time.Duration) Option {
	return func(rl *RateLimiter) {
		if d > 0 {
			rl.recordTimeout = d
		}
	}
}

// NewRateLimiter creates a dispatcher backed by the given config provider
// and audit sink. The sink may be nil, in which case decisions are not
// recorded.
func NewRateLimiter(configs ConfigProvider, sink AuditSink, opts ...Option) *RateLimiter {
	rl := &RateLimiter{
		configs:       configs,
		sink:          sink,
		now:           time.Now,
		recordTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(rl)
	}
	rl.states = NewStateStore(WithStoreClock(rl.now))
	return rl
}

// Decide checks whether one request for apiKey against endpoint is admitted.
// It never returns an error: ambiguity at decision time resolves to a
// rejection, never to a silent admit.
func (rl *RateLimiter) Decide(ctx context.Context, apiKey, endpoint string) Decision {
	cfg, err := rl.configs.Get(ctx, apiKey)
	if errors.Is(err, ErrConfigNotFound) {
		// No limit configured: admit without touching or caching any state.
		return Decision{Allowed: true, Remaining: NoLimitRemaining, Algorithm: AlgorithmNoLimit}
	}
	if err != nil {
		log.Error().Err(err).Str("api_key", apiKey).Msg("config lookup failed, rejecting")
		return Decision{Allowed: false, Remaining: 0}
	}

	decision := rl.apply(cfg)
	if !decision.Allowed {
		log.Warn().Str("api_key", apiKey).Str("endpoint", endpoint).
			Str("algorithm", decision.Algorithm).Int("remaining", decision.Remaining).
			Msg("rate limit exceeded")
	}

	rl.record(apiKey, endpoint, decision)
	return decision
}

// apply resolves the algorithm state for cfg and runs the admission check
// under the per-key lock.
func (rl *RateLimiter) apply(cfg *Config) Decision {
	entry, ok := rl.states.acquire(cfg)
	if !ok {
		// A config naming an unknown algorithm should have been rejected at
		// creation time. If one slips through, fail closed.
		log.Error().Str("api_key", cfg.APIKey).Str("algorithm", cfg.Algorithm).
			Msg("unknown algorithm in stored config, rejecting")
		return Decision{Allowed: false, Remaining: 0, Algorithm: cfg.Algorithm}
	}

	entry.mu.Lock()
	allowed := entry.v.allow()
	remaining := entry.v.remaining()
	entry.mu.Unlock()

	return Decision{Allowed: allowed, Remaining: remaining, Algorithm: cfg.Algorithm}
}

// record emits the audit record asynchronously. Failures are logged and
// dropped; the decision has already been made.
func (rl *RateLimiter) record(apiKey, endpoint string, decision Decision) {
	if rl.sink == nil {
		return
	}
	rec := AuditRecord{
		ID:        uuid.NewString(),
		APIKey:    apiKey,
		Endpoint:  endpoint,
		Algorithm: decision.Algorithm,
		Allowed:   decision.Allowed,
		Remaining: decision.Remaining,
		Timestamp: rl.now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), rl.recordTimeout)
		defer cancel()
		if err := rl.sink.Record(ctx, rec); err != nil {
			log.Warn().Err(err).Str("api_key", rec.APIKey).Str("endpoint", rec.Endpoint).
				Msg("audit record dropped")
		}
	}()
}

// Purge discards all cached algorithm state for one api key. Callers must
// invoke it whenever the key's config is created, replaced or deleted so the
// next decision starts from the new config's clean slate.
func (rl *RateLimiter) Purge(apiKey string) {
	rl.states.Purge(apiKey)
}

// Reset discards all per-key algorithm state across every key and kind.
func (rl *RateLimiter) Reset() {
	rl.states.Reset()
}

// Active reports live algorithm instances per kind.
func (rl *RateLimiter) Active() map[string]int {
	return rl.states.Active()
}
