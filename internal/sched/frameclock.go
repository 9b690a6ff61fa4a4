// internal/sched/frameclock.go

package sched

import (
	"sync/atomic"
)

// FrameClock tracks simulated time and counts frames atomically.
type FrameClock struct {
	elapsed atomic.Int64
	frames  atomic.Int64
}

// Advance moves the clock forward by one frame of the given length.
func (c *FrameClock) Advance(frameLength int64) {
	c.elapsed.Add(frameLength)
	c.frames.Add(1)
}

// Elapsed returns the simulated time covered so far.
func (c *FrameClock) Elapsed() int64 {
	return c.elapsed.Load()
}

// Frames returns how many frames have completed.
func (c *FrameClock) Frames() int64 {
	return c.frames.Load()
}
