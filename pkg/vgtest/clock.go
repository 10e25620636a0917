package vgtest

import (
	"sync"
	"time"
)

// Clock is a manually driven clock implementing session.Clock. Sleep
// advances the clock instead of blocking, so timing-dependent code runs at
// full speed under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock at a fixed, arbitrary start time.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d without blocking.
func (c *Clock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
