package limiter

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// stateKey identifies one live algorithm instance.
type stateKey struct {
	apiKey    string
	algorithm string
}

// stateEntry pairs a variant with the mutex serializing its mutations.
// Locking lives on the entry, not the store, so decisions for distinct keys
// never contend with each other.
type stateEntry struct {
	mu sync.Mutex
	v  variant
}

// StateStore owns all live per-key algorithm state. It maps
// (api key, algorithm) to exactly one instance, creating it lazily from the
// active config on first use and discarding it whenever that config is
// replaced or reset.
type StateStore struct {
	mu     sync.RWMutex
	states map[stateKey]*stateEntry
	now    func() time.Time
}

// StoreOption configures a StateStore.
type StoreOption func(*StateStore)

// WithStoreClock overrides the store's time source. Intended for tests.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *StateStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStateStore creates an empty per-key state store.
func NewStateStore(opts ...StoreOption) *StateStore {
	s := &StateStore{
		states: make(map[stateKey]*stateEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// acquire returns the live entry for (cfg.APIKey, cfg.Algorithm), creating
// it from cfg on first access. Reports false for an unrecognized algorithm.
func (s *StateStore) acquire(cfg *Config) (*stateEntry, bool) {
	key := stateKey{apiKey: cfg.APIKey, algorithm: cfg.Algorithm}

	s.mu.RLock()
	entry, ok := s.states[key]
	s.mu.RUnlock()
	if ok {
		return entry, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: another goroutine may have created it between the locks.
	if entry, ok := s.states[key]; ok {
		return entry, true
	}

	v, ok := newVariant(cfg, s.now)
	if !ok {
		return nil, false
	}
	entry = &stateEntry{v: v}
	s.states[key] = entry
	log.Debug().Str("api_key", cfg.APIKey).Str("algorithm", cfg.Algorithm).
		Int("max_requests", cfg.MaxRequests).Int("window_seconds", cfg.WindowSeconds).
		Msg("created limiter state")
	return entry, true
}

// Purge drops all algorithm state for one api key, across every kind.
// Dropping every kind, not just the configured one, guarantees that state
// built under an older config (possibly a different algorithm) never
// influences decisions made under a newer one.
func (s *StateStore) Purge(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, algorithm := range Algorithms() {
		delete(s.states, stateKey{apiKey: apiKey, algorithm: algorithm})
	}
	log.Debug().Str("api_key", apiKey).Msg("purged limiter state")
}

// Reset discards all per-key state across all keys and kinds.
func (s *StateStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[stateKey]*stateEntry)
	log.Info().Msg("all limiter state reset")
}

// Active reports the number of live instances per algorithm kind.
func (s *StateStore) Active() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int, len(validAlgorithms))
	for _, algorithm := range Algorithms() {
		counts[algorithm] = 0
	}
	for key := range s.states {
		counts[key.algorithm]++
	}
	return counts
}
