// Package waitclock tracks how long one acquire attempt spent in each
// phase of a suspend-and-resume cycle (fast-path check, queued, promoted),
// built directly on this module's own timing package rather than ad hoc
// time.Now() bookkeeping scattered through each primitive.
package waitclock

import (
	"time"

	"github.com/vanadium-labs/asynclock/timing"
)

// Clock tracks the phases of one acquire attempt, from the moment a caller
// first asks for a unit of a primitive to the moment it is either granted,
// cancelled, or faulted by Dispose.
type Clock struct {
	timer *timing.Timer
	start time.Time
	open  bool
}

// Start begins tracking an attempt named op (e.g. "semaphore.Take",
// "rwlock.LockWrite"); op identifies the operation in diagnostic output,
// not the specific instance.
func Start(op string) *Clock {
	return &Clock{timer: timing.NewTimer(op), start: time.Now()}
}

// Mark records entry into a new phase (e.g. "queued", "promoted"), closing
// whichever phase was previously open. The first call opens the first
// phase; it does not need a prior phase to close.
func (c *Clock) Mark(phase string) {
	if c.open {
		c.timer.Pop()
	}
	c.timer.Push(phase)
	c.open = true
}

// Elapsed returns the time since the attempt started.
func (c *Clock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Finish closes out every open phase and returns the attempt's total
// elapsed time.
func (c *Clock) Finish() time.Duration {
	c.timer.Finish()
	c.open = false
	return c.Elapsed()
}

// String renders the phase tree recorded so far, for diagnostic logging
// under a raised verbosity level.
func (c *Clock) String() string {
	return c.timer.String()
}
