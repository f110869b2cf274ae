package kernel

import "sync/atomic"

// Clock is the kernel's monotonic tick counter.
type Clock struct {
	ticks atomic.Uint64
}

// Now returns the current tick.
func (c *Clock) Now() uint64 {
	return c.ticks.Load()
}

// Advance moves the clock forward one tick and returns the new value.
func (c *Clock) Advance() uint64 {
	return c.ticks.Add(1)
}
