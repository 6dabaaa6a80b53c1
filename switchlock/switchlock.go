// Package switchlock implements AsyncSwitchLock, a mutual-exclusion lock
// between two named sides (Left and Right): any number of holders on one
// side may run concurrently, but never alongside a holder of the other
// side. It generalizes AsyncReadWriteLock's reader-cohort/writer-exclusive
// shape to two symmetric sides instead of "many readers, one writer". See
// SPEC_FULL.md §4.5.
package switchlock

import (
	"context"
	"sync"

	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/dispatch"
	"github.com/vanadium-labs/asynclock/future"
	"github.com/vanadium-labs/asynclock/waiter"
)

// Side names one of the lock's two mutually exclusive sides.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) other() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Mode selects how an Enter call behaves when the opposite side is queued.
type Mode int

const (
	// Unfair lets a caller join an already-active side even if the
	// opposite side has queued waiters.
	Unfair Mode = iota
	// Fair makes a caller queue behind any opposite-side waiter that
	// arrived first.
	Fair
)

// AsyncSwitchLock is the two-sided generalization of AsyncReadWriteLock. On
// every release that drops the active cohort to zero, the opposite side's
// entire waiting set is promoted together (nsync's cohort-wakeup pattern,
// applied symmetrically to both sides rather than favoring one).
type AsyncSwitchLock struct {
	mu          waiter.SpinLock
	activeSide  Side
	activeCount int64
	disposed    bool
	pool        waiter.Pool
	queues      [2]waiter.Queue
	dispatcher  dispatch.Dispatcher
}

// Option configures a new AsyncSwitchLock.
type Option func(*AsyncSwitchLock)

// WithDispatcher overrides the Dispatcher used to resume waiters.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(l *AsyncSwitchLock) { l.dispatcher = d }
}

// New creates an idle AsyncSwitchLock.
func New(opts ...Option) *AsyncSwitchLock {
	l := &AsyncSwitchLock{dispatcher: dispatch.Default}
	for _, o := range opts {
		o(l)
	}
	return l
}

// TryEnter attempts to join side without suspending, ignoring any queued
// opposite-side waiters.
func (l *AsyncSwitchLock) TryEnter(side Side) *Guard {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return nil
	}
	if l.activeCount == 0 {
		l.activeSide = side
		l.activeCount = 1
		return &Guard{lock: l, side: side}
	}
	if l.activeSide == side {
		l.activeCount++
		return &Guard{lock: l, side: side}
	}
	return nil
}

// Enter suspends the caller until side is grantable, the lock is disposed,
// or token fires.
func (l *AsyncSwitchLock) Enter(side Side, token cancel.Token, mode Mode) *future.Future[*Guard] {
	if token == nil {
		token = cancel.None()
	}
	l.mu.Lock()
	if !l.disposed {
		if l.activeCount == 0 {
			l.activeSide = side
			l.activeCount = 1
			l.mu.Unlock()
			return future.Completed(&Guard{lock: l, side: side}, nil)
		}
		if l.activeSide == side && (mode == Unfair || l.queues[side.other()].Empty()) {
			l.activeCount++
			l.mu.Unlock()
			return future.Completed(&Guard{lock: l, side: side}, nil)
		}
	}
	if l.disposed {
		l.mu.Unlock()
		return future.Completed[*Guard](nil, future.ErrDisposed)
	}

	w := l.pool.Get()
	fut := future.New[*Guard]()
	w.Arm(func(err error) {
		if err != nil {
			fut.Complete(nil, err)
		} else {
			fut.Complete(&Guard{lock: l, side: side}, nil)
		}
		l.pool.Put(w)
	})
	l.queues[side].PushBack(w)
	l.mu.Unlock()

	if token.CanBeCancelled() {
		reg := token.Register(func() { l.cancelWaiter(w, side) })
		fut.OnCompletion(context.Background(), func(context.Context, *Guard, error) { reg.Dispose() })
	}
	return fut
}

func (l *AsyncSwitchLock) cancelWaiter(w *waiter.Waiter, side Side) {
	l.mu.Lock()
	q := &l.queues[side]
	present := q.Contains(w)
	if present {
		q.Remove(w)
	}
	l.mu.Unlock()
	if present {
		w.Cancel(future.ErrCancelled)
	}
}

func (l *AsyncSwitchLock) release(side Side) {
	var toResume []*waiter.Waiter

	l.mu.Lock()
	l.activeCount--
	if l.activeCount == 0 {
		other := side.other()
		toResume = l.queues[other].DrainAll()
		if len(toResume) > 0 {
			l.activeSide = other
			l.activeCount = int64(len(toResume))
		} else {
			toResume = l.queues[side].DrainAll()
			if len(toResume) > 0 {
				l.activeSide = side
				l.activeCount = int64(len(toResume))
			}
		}
	}
	l.mu.Unlock()

	for _, w := range toResume {
		w := w
		l.dispatcher.Dispatch(func() { w.Resume(waiter.StateHeld, nil) })
	}
}

// Dispose marks the lock disposed: no further Enter succeeds, and every
// pending waiter on both sides is faulted with ErrDisposed. Dispose is
// idempotent.
func (l *AsyncSwitchLock) Dispose() {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return
	}
	l.disposed = true
	left := l.queues[Left].DrainAll()
	right := l.queues[Right].DrainAll()
	l.mu.Unlock()

	for _, w := range left {
		w := w
		l.dispatcher.Dispatch(func() { w.Resume(waiter.StateDisposed, future.ErrDisposed) })
	}
	for _, w := range right {
		w := w
		l.dispatcher.Dispatch(func() { w.Resume(waiter.StateDisposed, future.ErrDisposed) })
	}
}

// Guard represents one held slot on one side of the lock.
type Guard struct {
	lock     *AsyncSwitchLock
	side     Side
	released sync.Once
}

// Side reports which side this Guard holds.
func (g *Guard) Side() Side { return g.side }

// Release releases the slot. Later calls are a no-op.
func (g *Guard) Release() {
	g.released.Do(func() { g.lock.release(g.side) })
}
