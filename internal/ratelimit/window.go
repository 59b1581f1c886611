// Package ratelimit implements fixed-window request budgets for upstream APIs.
package ratelimit

import (
	"sync"
	"time"
)

// Window is a fixed-window request counter. Each provider owns one instance;
// the window is never shared across providers. Allow is non-blocking: the
// caller decides whether to fail fast or come back later.
type Window struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
	max         int
	size        time.Duration

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewWindow creates a fixed-window limiter allowing max requests per size.
func NewWindow(max int, size time.Duration) *Window {
	return &Window{
		max:     max,
		size:    size,
		nowFunc: time.Now,
	}
}

// Allow reports whether another request fits in the current window and, if
// so, counts it. The window resets exactly when size has elapsed since its
// start. Never blocks, never errors.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.nowFunc()
	if w.windowStart.IsZero() || now.Sub(w.windowStart) >= w.size {
		w.windowStart = now
		w.count = 0
	}

	if w.count >= w.max {
		return false
	}
	w.count++
	return true
}

// ResetAt returns when the current window expires. After a denied Allow this
// is the earliest time a request can succeed again.
func (w *Window) ResetAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.windowStart.IsZero() {
		return w.nowFunc()
	}
	return w.windowStart.Add(w.size)
}

// Remaining returns how many requests are left in the current window.
func (w *Window) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.windowStart.IsZero() || w.nowFunc().Sub(w.windowStart) >= w.size {
		return w.max
	}
	left := w.max - w.count
	if left < 0 {
		return 0
	}
	return left
}
