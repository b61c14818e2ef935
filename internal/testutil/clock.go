package testutil

import (
	"sync"
	"time"
)

// ManualClock is a deterministic clock for deadline tests.
//
// Unlike the wall clock it only moves when Advance is called, or by Step on
// every Now call when a step is configured. This lets retry-loop tests
// exhaust a deadline without sleeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewManualClock creates a clock frozen at a fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// NewSteppingClock creates a clock that advances by step after every Now call.
func NewSteppingClock(step time.Duration) *ManualClock {
	c := NewManualClock()
	c.step = step
	return c
}

// Now returns the current instant, then applies the configured step.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
