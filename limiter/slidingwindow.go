package limiter

import "time"

// slidingWindow keeps counters for the current and previous window and
// admits against a weighted estimate, smoothing the boundary bursts a fixed
// window permits. The previous window's count decays linearly as the current
// window progresses, so the weight always lies in [0, 1].
type slidingWindow struct {
	maxRequests   int
	windowSeconds int
	currentCount  int
	previousCount int
	currentStart  time.Time
	now           func() time.Time
}

func newSlidingWindow(maxRequests, windowSeconds int, now func() time.Time) *slidingWindow {
	return &slidingWindow{
		maxRequests:   maxRequests,
		windowSeconds: windowSeconds,
		currentStart:  now(),
		now:           now,
	}
}

func (w *slidingWindow) allow() bool {
	now := w.now()
	elapsed := now.Sub(w.currentStart).Seconds()

	if elapsed >= float64(w.windowSeconds) {
		w.previousCount = w.currentCount
		w.currentCount = 0
		w.currentStart = now
		elapsed = 0
	}

	weight := (float64(w.windowSeconds) - elapsed) / float64(w.windowSeconds)
	estimate := float64(w.previousCount)*weight + float64(w.currentCount)

	if estimate < float64(w.maxRequests) {
		w.currentCount++
		return true
	}
	return false
}

func (w *slidingWindow) remaining() int {
	elapsed := w.now().Sub(w.currentStart).Seconds()

	if elapsed >= float64(w.windowSeconds) {
		return w.maxRequests
	}

	weight := (float64(w.windowSeconds) - elapsed) / float64(w.windowSeconds)
	estimate := float64(w.previousCount)*weight + float64(w.currentCount)
	if left := int(float64(w.maxRequests) - estimate); left > 0 {
		return left
	}
	return 0
}
