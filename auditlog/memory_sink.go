package auditlog

import (
	"context"
	"sync"

	"github.com/toolink/throttle/limiter"
)

const defaultMemoryCap = 10000

// MemorySink keeps audit records in a bounded in-memory slice, oldest
// dropped first once the cap is reached.
type MemorySink struct {
	mu      sync.RWMutex
	records []limiter.AuditRecord
	cap     int
}

// MemoryOption configures a MemorySink.
type MemoryOption func(*MemorySink)

// WithCapacity bounds how many records the sink retains. Defaults to 10000.
func WithCapacity(n int) MemoryOption {
	return func(s *MemorySink) {
		if n > 0 {
			s.cap = n
		}
	}
}

// NewMemorySink creates a new in-memory audit sink.
func NewMemorySink(opts ...MemoryOption) *MemorySink {
	s := &MemorySink{cap: defaultMemoryCap}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one audit record, evicting the oldest beyond capacity.
func (s *MemorySink) Record(ctx context.Context, rec limiter.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if len(s.records) > s.cap {
		s.records = s.records[len(s.records)-s.cap:]
	}
	return nil
}

// Clear discards all stored records.
func (s *MemorySink) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Recent returns up to limit records, newest first.
func (s *MemorySink) Recent(ctx context.Context, apiKey string, limit int) ([]limiter.AuditRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]limiter.AuditRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if apiKey != "" && s.records[i].APIKey != apiKey {
			continue
		}
		out = append(out, s.records[i])
	}
	return out, nil
}

// Summary aggregates stored records.
func (s *MemorySink) Summary(ctx context.Context, apiKey string) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summarize(s.records, apiKey), nil
}

// Count returns the number of stored records.
func (s *MemorySink) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
