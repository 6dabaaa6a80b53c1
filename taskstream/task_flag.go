package taskstream

import (
	"context"

	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/dispatch"
	"github.com/vanadium-labs/asynclock/future"
	"github.com/vanadium-labs/asynclock/waiter"
)

// FlagState is the lifecycle state of an AsyncTaskFlag.
type FlagState int32

const (
	// Idle: no run pending or in progress.
	Idle FlagState = iota
	// Flagged: a run has been requested and dispatched, but has not
	// started executing yet.
	Flagged
	// Running: the action is currently executing. A Set call made while
	// Running does not start a second concurrent run; it marks the flag
	// to run again immediately after the current run finishes.
	Running
)

// AsyncTaskFlag coalesces repeated triggers into a single pending rerun: if
// Set is called while the action is already Running, that call does not
// queue a second execution — it just ensures one more run happens right
// after the current one finishes. This is the self-rearming debounce shape
// described in the Component Design, implemented directly on the state
// machine rather than as a thin wrapper over TaskStream, since TaskStream's
// FIFO chain would run every trigger individually instead of coalescing
// them.
type AsyncTaskFlag struct {
	mu         waiter.SpinLock
	state      FlagState
	rerun      bool
	disposed   bool
	action     func(context.Context)
	dispatcher dispatch.Dispatcher
	pool       waiter.Pool
	waiters    waiter.Queue
}

// Option configures a new AsyncTaskFlag.
type Option func(*AsyncTaskFlag)

// WithDispatcher overrides the Dispatcher used to run the action and resume
// SetAndWait callers.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(f *AsyncTaskFlag) { f.dispatcher = d }
}

// New creates an idle AsyncTaskFlag that runs action on each triggered run.
func New(action func(context.Context), opts ...Option) *AsyncTaskFlag {
	f := &AsyncTaskFlag{action: action, dispatcher: dispatch.Default}
	for _, o := range opts {
		o(f)
	}
	return f
}

// State returns the flag's current lifecycle state.
func (f *AsyncTaskFlag) State() FlagState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Set triggers a run. If the flag is Idle, a run is dispatched immediately.
// If a run is already Flagged or Running, Set ensures one more run happens
// once the current one settles, without starting a concurrent second run.
func (f *AsyncTaskFlag) Set() {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return
	}
	needDispatch := false
	switch f.state {
	case Idle:
		f.state = Flagged
		needDispatch = true
	case Running:
		f.rerun = true
	case Flagged:
		// already scheduled
	}
	f.mu.Unlock()
	if needDispatch {
		f.dispatchRun()
	}
}

// SetAndWait behaves like Set, but returns a Future that settles once the
// flag next returns to Idle — i.e. once every run chained by this and any
// earlier pending trigger has completed.
func (f *AsyncTaskFlag) SetAndWait(token cancel.Token) *future.Future[struct{}] {
	if token == nil {
		token = cancel.None()
	}
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return future.Completed(struct{}{}, future.ErrDisposed)
	}
	needDispatch := false
	switch f.state {
	case Idle:
		f.state = Flagged
		needDispatch = true
	case Running:
		f.rerun = true
	case Flagged:
	}

	w := f.pool.Get()
	fut := future.New[struct{}]()
	w.Arm(func(err error) {
		fut.Complete(struct{}{}, err)
		f.pool.Put(w)
	})
	f.waiters.PushBack(w)
	f.mu.Unlock()

	if needDispatch {
		f.dispatchRun()
	}
	if token.CanBeCancelled() {
		reg := token.Register(func() { f.cancelWaiter(w) })
		fut.OnCompletion(context.Background(), func(context.Context, struct{}, error) { reg.Dispose() })
	}
	return fut
}

func (f *AsyncTaskFlag) cancelWaiter(w *waiter.Waiter) {
	f.mu.Lock()
	present := f.waiters.Contains(w)
	if present {
		f.waiters.Remove(w)
	}
	f.mu.Unlock()
	if present {
		w.Cancel(future.ErrCancelled)
	}
}

func (f *AsyncTaskFlag) dispatchRun() {
	f.dispatcher.Dispatch(func() {
		f.mu.Lock()
		f.state = Running
		f.mu.Unlock()

		f.action(context.Background())

		f.mu.Lock()
		rerun := f.rerun
		f.rerun = false
		var toResume []*waiter.Waiter
		if rerun {
			f.state = Flagged
		} else {
			f.state = Idle
			toResume = f.waiters.DrainAll()
		}
		f.mu.Unlock()

		for _, w := range toResume {
			w := w
			f.dispatcher.Dispatch(func() { w.Resume(waiter.StateHeld, nil) })
		}
		if rerun {
			f.dispatchRun()
		}
	})
}

// Dispose marks the flag disposed: Set and SetAndWait become no-ops (the
// latter resolving ErrDisposed immediately), and every SetAndWait caller
// already queued is faulted with ErrDisposed. A run already in progress is
// allowed to finish. Dispose is idempotent.
func (f *AsyncTaskFlag) Dispose() {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return
	}
	f.disposed = true
	waiters := f.waiters.DrainAll()
	f.mu.Unlock()

	for _, w := range waiters {
		w := w
		f.dispatcher.Dispatch(func() { w.Resume(waiter.StateDisposed, future.ErrDisposed) })
	}
}
