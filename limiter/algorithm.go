package limiter

import "time"

// variant is the capability set shared by the four admission algorithms.
// Implementations are not safe for concurrent use on their own; the state
// store serializes access per (api key, algorithm) pair.
type variant interface {
	// allow decides one request against the limit, mutating internal state.
	allow() bool
	// remaining projects the quota left without mutating internal state.
	// Reads must never advance window or refill bookkeeping: a concurrent
	// allow call would otherwise observe different admission outcomes.
	remaining() int
}

// newVariant constructs the algorithm instance matching cfg.Algorithm.
// Rate-based variants derive their per-second rate from the config; the
// window-based ones copy the budget directly.
func newVariant(cfg *Config, now func() time.Time) (variant, bool) {
	switch cfg.Algorithm {
	case AlgorithmTokenBucket:
		return newTokenBucket(float64(cfg.MaxRequests), cfg.ratePerSecond(), now), true
	case AlgorithmLeakyBucket:
		return newLeakyBucket(cfg.MaxRequests, cfg.ratePerSecond(), now), true
	case AlgorithmFixedWindow:
		return newFixedWindow(cfg.MaxRequests, cfg.WindowSeconds, now), true
	case AlgorithmSlidingWindow:
		return newSlidingWindow(cfg.MaxRequests, cfg.WindowSeconds, now), true
	default:
		return nil, false
	}
}
