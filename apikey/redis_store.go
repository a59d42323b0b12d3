package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "throttle:apikey:"

// redisStore implements the Store interface using Redis.
type redisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a Redis-backed api key store.
func NewRedisStore(client redis.Cmdable) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Create(ctx context.Context, key *Key) error {
	payload, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("serialize api key: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key.APIKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, apiKey string) (*Key, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+apiKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var key Key
	if err := json.Unmarshal(payload, &key); err != nil {
		return nil, fmt.Errorf("corrupt api key entry: %w", err)
	}
	return &key, nil
}

func (s *redisStore) List(ctx context.Context) ([]*Key, error) {
	var keys []*Key
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed for %s: %w", iter.Val(), err)
		}
		var key Key
		if err := json.Unmarshal(payload, &key); err != nil {
			log.Warn().Err(err).Str("redis_key", iter.Val()).Msg("skipping corrupt api key entry")
			continue
		}
		keys = append(keys, &key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return keys, nil
}

func (s *redisStore) Count(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return count, nil
}
