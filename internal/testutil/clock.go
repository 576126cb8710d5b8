// Package testutil provides shared test helpers.
package testutil

import "sync"

// ManualClock is a hand-advanced unix-seconds time source for tests.
// It satisfies engine.TimeSource and makes turn-deadline behavior
// deterministic: the clock only moves when the test says so.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock creates a clock pinned at the given unix time.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current pinned time.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
}

// Set pins the clock to an absolute unix time.
func (c *ManualClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = unix
}
