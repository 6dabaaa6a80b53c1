// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package waiter

import "sync/atomic"

// State is the lifecycle state of a Waiter, per the Data Model's Waiter Node.
type State int32

const (
	// StateUnused marks a Waiter sitting in the free pool.
	StateUnused State = iota
	// StatePending marks a Waiter enqueued and awaiting a resume.
	StatePending
	// StateHeld marks a Waiter that was granted the resource.
	StateHeld
	// StateCancelled marks a Waiter whose cancellation hook fired before a
	// grant, and for which the caller has not yet observed the result.
	StateCancelled
	// StateCancelledGotResult marks a Waiter whose cancellation hook fired
	// but which raced with (and lost to) a grant; the grant stands.
	StateCancelledGotResult
	// StateCancelledNotWaiting marks a cancellation hook firing after the
	// Waiter already left the queue through some other path.
	StateCancelledNotWaiting
	// StateDisposed marks a Waiter faulted because its owning primitive was
	// disposed.
	StateDisposed
)

// Waiter is a single-use (per lease) handle representing one suspended
// acquire attempt. It is never constructed directly by callers; primitives
// lease one from a per-primitive Pool, enqueue it on their own Queue, and
// resume it at most once via Resume or Cancel.
//
// Classifier holds primitive-specific routing data set by the lessee;
// AsyncCounter stores IsPeek there. It is opaque to Waiter itself.
type Waiter struct {
	link    dll
	state   int32  // atomic, a State value
	version uint32 // atomic, bumped every time the Waiter returns to the pool

	Classifier any

	resume func(err error)
}

// newWaiter allocates a fresh Waiter. Only called by Pool when its free list
// is empty.
func newWaiter() *Waiter {
	w := &Waiter{}
	w.link.elem = w
	return w
}

// Version returns the Waiter's current token version. A caller that captured
// a version at lease time and later observes a different version here knows
// its handle to this Waiter is stale (the Waiter was returned to the pool and
// re-leased to someone else).
func (w *Waiter) Version() uint32 {
	return atomic.LoadUint32(&w.version)
}

// State returns the Waiter's current lifecycle state.
func (w *Waiter) State() State {
	return State(atomic.LoadInt32(&w.state))
}

// Arm transitions a freshly leased Waiter into StatePending and installs the
// continuation to invoke on resume. Must be called exactly once per lease,
// before the Waiter is published on any queue.
func (w *Waiter) Arm(resume func(err error)) {
	w.resume = resume
	atomic.StoreInt32(&w.state, int32(StatePending))
}

// TryTransition attempts a single CAS from "from" to "to", returning whether
// it won the race. Losing racers must not retry; the winning transition
// determines the Waiter's outcome, per the Data Model's absorbing-terminal
// invariant.
func (w *Waiter) TryTransition(from, to State) bool {
	return atomic.CompareAndSwapInt32(&w.state, int32(from), int32(to))
}

// Resume invokes the Waiter's continuation exactly once, if this call wins
// the transition out of StatePending. err is nil for a successful grant.
// Returns whether this call was the one that fired the continuation.
func (w *Waiter) Resume(to State, err error) bool {
	if !w.TryTransition(StatePending, to) {
		return false
	}
	w.resume(err)
	return true
}

// Cancel fires the Waiter's cancellation hook: it attempts the
// Pending->Cancelled transition and, on success, invokes the continuation
// with err (normally future.ErrCancelled). Returns whether this call won the
// race; a false return means the Waiter had already been granted or disposed
// by a concurrent Resume, and the cancellation is a no-op.
func (w *Waiter) Cancel(err error) bool {
	return w.Resume(StateCancelled, err)
}

// reset clears a Waiter for return to the pool, bumping its version so any
// late, racing holders of the old version observe a mismatch.
func (w *Waiter) reset() {
	w.resume = nil
	w.Classifier = nil
	atomic.StoreInt32(&w.state, int32(StateUnused))
	atomic.AddUint32(&w.version, 1)
}
