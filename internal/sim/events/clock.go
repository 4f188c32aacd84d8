package events

import (
	"sync"
	"time"
)

// Clock supplies the simulation time in seconds. It must be monotonic.
type Clock interface {
	Now() float64
}

// ManualClock is advanced explicitly by the owner of the tick loop.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by dt seconds. Negative values are ignored.
func (c *ManualClock) Advance(dt float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dt > 0 {
		c.now += dt
	}
	return c.now
}

// Set jumps to t when t is not earlier than the current time.
func (c *ManualClock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
}

type wallClock struct{ start time.Time }

func (c wallClock) Now() float64 { return time.Since(c.start).Seconds() }
