package apikey

import (
	"context"
	"sync"
)

// memoryStore implements the Store interface using an in-memory map.
type memoryStore struct {
	mu   sync.RWMutex
	keys map[string]*Key // token value -> key
}

// NewMemoryStore creates a new in-memory api key store.
func NewMemoryStore() Store {
	return &memoryStore{
		keys: make(map[string]*Key),
	}
}

func (s *memoryStore) Create(ctx context.Context, key *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *key
	s.keys[key.APIKey] = &copied
	return nil
}

func (s *memoryStore) Get(ctx context.Context, apiKey string) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[apiKey]
	if !ok {
		return nil, ErrKeyNotFound
	}
	copied := *key
	return &copied, nil
}

func (s *memoryStore) List(ctx context.Context) ([]*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*Key, 0, len(s.keys))
	for _, key := range s.keys {
		copied := *key
		keys = append(keys, &copied)
	}
	return keys, nil
}

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys), nil
}
