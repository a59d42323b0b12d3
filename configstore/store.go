// Package configstore persists per-key rate limit configurations.
// It backs the limiter's ConfigProvider with either an in-memory map or
// Redis; both guarantee last-write-wins semantics per api key.
package configstore

import (
	"context"

	"github.com/toolink/throttle/limiter"
)

// Store persists rate limit configs, keyed by api key.
// Put supersedes any prior config for the same key; callers owning limiter
// state must purge it after every Put or Delete.
type Store interface {
	// Get returns the active config for apiKey, or limiter.ErrConfigNotFound.
	Get(ctx context.Context, apiKey string) (*limiter.Config, error)
	// Put validates cfg and stores it, replacing any existing config for
	// the same api key.
	Put(ctx context.Context, cfg *limiter.Config) error
	// Delete removes the config for apiKey. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, apiKey string) error
	// List returns all active configs.
	List(ctx context.Context) ([]*limiter.Config, error)
	// Count returns the number of active configs.
	Count(ctx context.Context) (int, error)
}
