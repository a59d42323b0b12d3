package apikey

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when looking up an api key that was never issued.
var ErrKeyNotFound = errors.New("apikey: key not found")

// Store persists issued api keys.
type Store interface {
	// Create stores a newly issued key.
	Create(ctx context.Context, key *Key) error
	// Get looks up a key by its token value, or ErrKeyNotFound.
	Get(ctx context.Context, apiKey string) (*Key, error)
	// List returns all issued keys.
	List(ctx context.Context) ([]*Key, error)
	// Count returns the number of issued keys.
	Count(ctx context.Context) (int, error)
}
