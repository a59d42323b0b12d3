package limiter

import "time"

// fixedWindow counts requests inside fixed-size windows and resets the
// counter entirely at each boundary. Simple, but permits bursts of up to
// 2*maxRequests straddling a boundary.
type fixedWindow struct {
	maxRequests   int
	windowSeconds int
	counter       int
	windowStart   time.Time
	now           func() time.Time
}

func newFixedWindow(maxRequests, windowSeconds int, now func() time.Time) *fixedWindow {
	return &fixedWindow{
		maxRequests:   maxRequests,
		windowSeconds: windowSeconds,
		windowStart:   now(),
		now:           now,
	}
}

func (w *fixedWindow) allow() bool {
	now := w.now()

	if now.Sub(w.windowStart).Seconds() >= float64(w.windowSeconds) {
		w.counter = 0
		w.windowStart = now
	}

	if w.counter < w.maxRequests {
		w.counter++
		return true
	}
	return false
}

// remaining reports the full budget for a stale window without performing
// the reset; only allow advances the window.
func (w *fixedWindow) remaining() int {
	if w.now().Sub(w.windowStart).Seconds() >= float64(w.windowSeconds) {
		return w.maxRequests
	}
	if left := w.maxRequests - w.counter; left > 0 {
		return left
	}
	return 0
}
