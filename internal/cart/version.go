package cart

import "sync/atomic"

// Clock is the monotonic logical clock behind State.Version.
//
// Every state-changing mutation takes exactly one tick. A store hydrated
// from a persisted snapshot resumes the clock at the snapshot's version, so
// versions keep increasing across restarts.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific version.
// Used when hydrating a store from a persisted snapshot.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next version and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current version without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
