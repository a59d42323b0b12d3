package limiter

import "time"

// leakyBucket models a FIFO queue of in-flight request markers draining at a
// constant rate. A request is admitted while the queue has room.
type leakyBucket struct {
	capacity int
	queue    []time.Time // admission timestamps, oldest first
	leakRate float64     // markers drained per second
	lastLeak time.Time
	now      func() time.Time
}

func newLeakyBucket(capacity int, leakRate float64, now func() time.Time) *leakyBucket {
	return &leakyBucket{
		capacity: capacity,
		leakRate: leakRate,
		lastLeak: now(),
		now:      now,
	}
}

// admit drains whole leaks accrued since lastLeak, then enqueues the request
// if the bucket has room.
//
// lastLeak is reset to now unconditionally, even when the elapsed time only
// covered a fraction of a leak interval. Sub-interval time is therefore
// discarded under frequent polling, slightly under-draining the queue. This
// matches the long-standing observed behavior; changing the baseline to
// advance by leaksApplied/leakRate would alter admission outcomes for
// existing deployments.
func (b *leakyBucket) admit() bool {
	now := b.now()
	elapsed := now.Sub(b.lastLeak).Seconds()

	leaks := int(elapsed * b.leakRate)
	if leaks > len(b.queue) {
		leaks = len(b.queue)
	}
	b.queue = b.queue[leaks:]
	b.lastLeak = now

	if len(b.queue) < b.capacity {
		b.queue = append(b.queue, now)
		return true
	}
	return false
}

func (b *leakyBucket) allow() bool {
	return b.admit()
}

// remaining projects the drain without applying it.
func (b *leakyBucket) remaining() int {
	elapsed := b.now().Sub(b.lastLeak).Seconds()
	leaks := int(elapsed * b.leakRate)
	size := len(b.queue) - leaks
	if size < 0 {
		size = 0
	}
	return b.capacity - size
}
