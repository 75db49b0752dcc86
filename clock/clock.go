package clock

import (
	"sync"
	"time"
)

// Clock returns the current time. Every component that needs "now" takes a
// Clock instead of calling time.Now directly.
type Clock interface {
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }

// Fake is a deterministic Clock. Time stands still until Advance or Set is
// called. Fake is safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	current time.Time
}

// NewFake returns a Fake clock frozen at initial.
func NewFake(initial time.Time) *Fake {
	return &Fake{current: initial}
}

// Now returns the current fake time.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d. Negative durations move it back.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Set jumps the clock to t.
func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}
