package fake

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is a clock.Clock whose Sleep advances time instantly. Only Now, Since and Sleep are
// simulated; the embedded nil Clock panics on anything else.
type Clock struct {
	clock.Clock

	mu    sync.Mutex
	now   time.Time
	slept time.Duration
}

// NewClock returns a stepping clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now implements clock.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since implements clock.Clock.
func (c *Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Sleep implements clock.Clock.
func (c *Clock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept += d
}

// Slept returns the total time spent in Sleep.
func (c *Clock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}
