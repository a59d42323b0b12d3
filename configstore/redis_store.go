package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/limiter"
)

const redisConfigPrefix = "throttle:config:"

// redisStore implements the Store interface using Redis.
// Configs are stored as JSON under one key per api key, so a plain SET
// gives the required last-write-wins supersede.
type redisStore struct {
	client redis.Cmdable // compatible with Client, ClusterClient, etc.
}

// NewRedisStore creates a Redis-backed config store.
// It expects a pre-configured redis.Cmdable.
func NewRedisStore(client redis.Cmdable) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, apiKey string) (*limiter.Config, error) {
	payload, err := s.client.Get(ctx, redisConfigPrefix+apiKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, limiter.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed for key %s: %w", apiKey, err)
	}

	var cfg limiter.Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("corrupt config for key %s: %w", apiKey, err)
	}
	return &cfg, nil
}

func (s *redisStore) Put(ctx context.Context, cfg *limiter.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serialize config for key %s: %w", cfg.APIKey, err)
	}
	if err := s.client.Set(ctx, redisConfigPrefix+cfg.APIKey, payload, 0).Err(); err != nil {
		log.Error().Err(err).Str("api_key", cfg.APIKey).Msg("redis config write failed")
		return fmt.Errorf("redis set failed for key %s: %w", cfg.APIKey, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, apiKey string) error {
	if err := s.client.Del(ctx, redisConfigPrefix+apiKey).Err(); err != nil {
		return fmt.Errorf("redis del failed for key %s: %w", apiKey, err)
	}
	return nil
}

func (s *redisStore) List(ctx context.Context) ([]*limiter.Config, error) {
	var configs []*limiter.Config
	iter := s.client.Scan(ctx, 0, redisConfigPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // deleted between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed for %s: %w", iter.Val(), err)
		}
		var cfg limiter.Config
		if err := json.Unmarshal(payload, &cfg); err != nil {
			log.Warn().Err(err).Str("redis_key", iter.Val()).Msg("skipping corrupt config entry")
			continue
		}
		configs = append(configs, &cfg)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return configs, nil
}

func (s *redisStore) Count(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, redisConfigPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return count, nil
}
