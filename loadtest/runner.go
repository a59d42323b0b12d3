// Package loadtest drives a configurable stream of admission decisions
// against a rate limiter and reports how many were admitted or blocked.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/limiter"
)

// Params configures one load test run.
type Params struct {
	APIKey            string `json:"api_key"`
	RequestsPerSecond int    `json:"requests_per_second"`
	DurationSeconds   int    `json:"duration_seconds"`
	Endpoint          string `json:"endpoint"`
}

// DefaultEndpoint is used when Params.Endpoint is empty.
const DefaultEndpoint = "/api/protected/test"

// Upper bounds on a single run. MaxRequestsPerSecond keeps the ticker
// interval well above zero; together with MaxDurationSeconds it also
// bounds the total request count.
const (
	MaxRequestsPerSecond = 10000
	MaxDurationSeconds   = 300
)

// Validate checks the run parameters.
func (p *Params) Validate() error {
	if p.APIKey == "" {
		return errors.New("loadtest: api key is required")
	}
	if p.RequestsPerSecond <= 0 {
		return errors.New("loadtest: requests_per_second must be positive")
	}
	if p.RequestsPerSecond > MaxRequestsPerSecond {
		return fmt.Errorf("loadtest: requests_per_second must not exceed %d", MaxRequestsPerSecond)
	}
	if p.DurationSeconds <= 0 {
		return errors.New("loadtest: duration_seconds must be positive")
	}
	if p.DurationSeconds > MaxDurationSeconds {
		return fmt.Errorf("loadtest: duration_seconds must not exceed %d", MaxDurationSeconds)
	}
	return nil
}

// Result summarizes a completed run.
type Result struct {
	TotalRequests     int       `json:"total_requests"`
	Allowed           int       `json:"allowed"`
	Blocked           int       `json:"blocked"`
	SuccessRate       float64   `json:"success_rate"`
	RequestsPerSecond int       `json:"requests_per_second"`
	DurationSeconds   int       `json:"duration_seconds"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	ActualDuration    float64   `json:"actual_duration"`
}

// Run issues RequestsPerSecond decisions per second for DurationSeconds
// against rl, pacing with a ticker. Canceling ctx stops the run early;
// decisions already made are kept in the result.
func Run(ctx context.Context, rl *limiter.RateLimiter, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	endpoint := params.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	total := params.RequestsPerSecond * params.DurationSeconds
	interval := time.Second / time.Duration(params.RequestsPerSecond)
	deadline := time.Duration(params.DurationSeconds) * time.Second

	result := &Result{
		TotalRequests:     total,
		RequestsPerSecond: params.RequestsPerSecond,
		DurationSeconds:   params.DurationSeconds,
		StartTime:         time.Now().UTC(),
	}

	log.Info().Str("api_key", params.APIKey).Int("rps", params.RequestsPerSecond).
		Int("duration_s", params.DurationSeconds).Msg("load test started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()

loop:
	for i := 0; i < total; i++ {
		decision := rl.Decide(ctx, params.APIKey, endpoint)
		if decision.Allowed {
			result.Allowed++
		} else {
			result.Blocked++
		}

		if time.Since(start) > deadline {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Msg("load test canceled")
			break loop
		}
	}

	result.EndTime = time.Now().UTC()
	result.ActualDuration = time.Since(start).Seconds()
	if total > 0 {
		result.SuccessRate = float64(int(float64(result.Allowed)/float64(total)*100*100+0.5)) / 100
	}

	log.Info().Int("allowed", result.Allowed).Int("blocked", result.Blocked).
		Float64("actual_duration_s", result.ActualDuration).Msg("load test finished")
	return result, nil
}
