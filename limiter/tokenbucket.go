package limiter

import "time"

// tokenBucket refills fractional tokens continuously and admits a request
// whenever at least one whole token is available. Starting full allows an
// initial burst up to capacity.
type tokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

func newTokenBucket(capacity, refillRate float64, now func() time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// consume refills from elapsed time, then takes n tokens if available.
func (b *tokenBucket) consume(n float64) bool {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()

	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now

	if b.tokens >= n {
		b.tokens -= n
		return true
	}
	return false
}

func (b *tokenBucket) allow() bool {
	return b.consume(1)
}

// remaining projects the refill without committing it; lastRefill and the
// stored token count are left untouched.
func (b *tokenBucket) remaining() int {
	elapsed := b.now().Sub(b.lastRefill).Seconds()
	current := min(b.capacity, b.tokens+elapsed*b.refillRate)
	return int(current)
}
