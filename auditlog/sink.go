// Package auditlog collects the append-only record trail of admission
// decisions and answers analytics queries over it. Sinks are best-effort
// collaborators: the limiter emits records fire-and-forget and never lets a
// sink failure affect an admission outcome.
package auditlog

import (
	"context"

	"github.com/toolink/throttle/limiter"
)

// Sink stores audit records. Implementations must satisfy
// limiter.AuditSink.
type Sink interface {
	limiter.AuditSink
	// Clear discards all stored records.
	Clear(ctx context.Context) error
}

// Query is the read side over recorded decisions.
type Query interface {
	// Recent returns up to limit records, newest first, optionally
	// filtered by api key ("" matches all).
	Recent(ctx context.Context, apiKey string, limit int) ([]limiter.AuditRecord, error)
	// Summary aggregates totals and a per-algorithm breakdown, optionally
	// filtered by api key ("" matches all).
	Summary(ctx context.Context, apiKey string) (Summary, error)
	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)
}

// AlgorithmStats aggregates outcomes for one algorithm kind.
type AlgorithmStats struct {
	Total       int     `json:"total"`
	Allowed     int     `json:"allowed"`
	Blocked     int     `json:"blocked"`
	SuccessRate float64 `json:"success_rate"`
}

// Summary aggregates decision outcomes.
type Summary struct {
	TotalRequests   int                       `json:"total_requests"`
	AllowedRequests int                       `json:"allowed_requests"`
	BlockedRequests int                       `json:"blocked_requests"`
	SuccessRate     float64                   `json:"success_rate"`
	AlgorithmStats  map[string]AlgorithmStats `json:"algorithm_stats"`
}

// summarize folds records into a Summary with per-algorithm breakdown.
func summarize(records []limiter.AuditRecord, apiKey string) Summary {
	summary := Summary{AlgorithmStats: make(map[string]AlgorithmStats)}
	for _, algorithm := range limiter.Algorithms() {
		summary.AlgorithmStats[algorithm] = AlgorithmStats{}
	}

	for _, rec := range records {
		if apiKey != "" && rec.APIKey != apiKey {
			continue
		}
		summary.TotalRequests++
		if rec.Allowed {
			summary.AllowedRequests++
		} else {
			summary.BlockedRequests++
		}

		stats := summary.AlgorithmStats[rec.Algorithm]
		stats.Total++
		if rec.Allowed {
			stats.Allowed++
		} else {
			stats.Blocked++
		}
		summary.AlgorithmStats[rec.Algorithm] = stats
	}

	if summary.TotalRequests > 0 {
		summary.SuccessRate = rate(summary.AllowedRequests, summary.TotalRequests)
	}
	for algorithm, stats := range summary.AlgorithmStats {
		if stats.Total > 0 {
			stats.SuccessRate = rate(stats.Allowed, stats.Total)
			summary.AlgorithmStats[algorithm] = stats
		}
	}
	return summary
}

// rate returns allowed/total as a percentage rounded to two decimals.
func rate(allowed, total int) float64 {
	return float64(int(float64(allowed)/float64(total)*100*100+0.5)) / 100
}
