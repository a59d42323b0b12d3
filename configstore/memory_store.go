package configstore

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/limiter"
)

// memoryStore implements the Store interface using an in-memory map.
type memoryStore struct {
	mu      sync.RWMutex
	configs map[string]*limiter.Config
}

// NewMemoryStore creates a new in-memory config store.
func NewMemoryStore() Store {
	return &memoryStore{
		configs: make(map[string]*limiter.Config),
	}
}

func (s *memoryStore) Get(ctx context.Context, apiKey string) (*limiter.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[apiKey]
	if !ok {
		return nil, limiter.ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (s *memoryStore) Put(ctx context.Context, cfg *limiter.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cfg
	if _, exists := s.configs[cfg.APIKey]; exists {
		log.Debug().Str("api_key", cfg.APIKey).Str("algorithm", cfg.Algorithm).Msg("superseding existing config")
	}
	s.configs[cfg.APIKey] = &copied
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, apiKey)
	return nil
}

func (s *memoryStore) List(ctx context.Context) ([]*limiter.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]*limiter.Config, 0, len(s.configs))
	for _, cfg := range s.configs {
		copied := *cfg
		configs = append(configs, &copied)
	}
	return configs, nil
}

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.configs), nil
}
