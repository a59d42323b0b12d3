package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/limiter"
)

const redisAuditKey = "throttle:audit"

// RedisSink appends audit records to a Redis list, newest at the head,
// trimmed to a maximum length so the trail cannot grow without bound.
type RedisSink struct {
	client redis.Cmdable
	maxLen int64
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithMaxLen caps the audit list length via LTRIM after each push.
// 0 disables trimming.
func WithMaxLen(n int64) RedisOption {
	return func(s *RedisSink) {
		if n >= 0 {
			s.maxLen = n
		}
	}
}

// NewRedisSink creates a Redis-backed audit sink.
func NewRedisSink(client redis.Cmdable, opts ...RedisOption) *RedisSink {
	s := &RedisSink{client: client, maxLen: 0}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record LPUSHes the serialized record and trims the list if configured.
func (s *RedisSink) Record(ctx context.Context, rec limiter.AuditRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serialize audit record: %w", err)
	}

	if err := s.client.LPush(ctx, redisAuditKey, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush failed: %w", err)
	}

	if s.maxLen > 0 {
		if err := s.client.LTrim(ctx, redisAuditKey, 0, s.maxLen-1).Err(); err != nil {
			// The record itself landed; a failed trim only delays eviction.
			log.Warn().Err(err).Msg("audit list trim failed")
		}
	}
	return nil
}

// Clear drops the audit list.
func (s *RedisSink) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, redisAuditKey).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *RedisSink) Recent(ctx context.Context, apiKey string, limit int) ([]limiter.AuditRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	// Over-fetch when filtering by key; the list is newest-first already.
	fetch := int64(limit) - 1
	if apiKey != "" {
		fetch = -1 // full range, filter below
	}
	raw, err := s.client.LRange(ctx, redisAuditKey, 0, fetch).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	out := make([]limiter.AuditRecord, 0, limit)
	for _, item := range raw {
		var rec limiter.AuditRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			log.Warn().Err(err).Msg("skipping corrupt audit record")
			continue
		}
		if apiKey != "" && rec.APIKey != apiKey {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Summary aggregates the stored trail.
func (s *RedisSink) Summary(ctx context.Context, apiKey string) (Summary, error) {
	raw, err := s.client.LRange(ctx, redisAuditKey, 0, -1).Result()
	if err != nil {
		return Summary{}, fmt.Errorf("redis lrange failed: %w", err)
	}

	records := make([]limiter.AuditRecord, 0, len(raw))
	for _, item := range raw {
		var rec limiter.AuditRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return summarize(records, apiKey), nil
}

// Count returns the audit list length.
func (s *RedisSink) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, redisAuditKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen failed: %w", err)
	}
	return int(n), nil
}
