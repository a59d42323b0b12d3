package limiter

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Config defines the rate limit applied to a single API key.
// At most one config is active per key; creating a new one supersedes
// any prior config for the same key.
type Config struct {
	ID            string    `json:"id"`
	APIKey        string    `json:"api_key"`
	Algorithm     string    `json:"algorithm"`
	MaxRequests   int       `json:"max_requests"`
	WindowSeconds int       `json:"window_seconds"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewConfig builds a validated Config with a fresh id.
func NewConfig(apiKey, algorithm string, maxRequests, windowSeconds int) (*Config, error) {
	cfg := &Config{
		ID:            uuid.NewString(),
		APIKey:        apiKey,
		Algorithm:     algorithm,
		MaxRequests:   maxRequests,
		WindowSeconds: windowSeconds,
		CreatedAt:     time.Now().UTC(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for values that would make a decision
// undefined. Rejecting window_seconds <= 0 here guarantees the refill and
// leak rate derivations never divide by zero at decision time.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("config requires an api key")
	}
	if !ValidAlgorithm(c.Algorithm) {
		return fmt.Errorf("unknown algorithm: %q", c.Algorithm)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("config for key '%s' has invalid max_requests: %d, must be positive", c.APIKey, c.MaxRequests)
	}
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("config for key '%s' has invalid window_seconds: %d, must be positive", c.APIKey, c.WindowSeconds)
	}
	return nil
}

// ratePerSecond derives the refill/leak rate from the configured budget.
// Only meaningful after Validate has passed.
func (c *Config) ratePerSecond() float64 {
	return float64(c.MaxRequests) / float64(c.WindowSeconds)
}
