// Package taskstream implements TaskStream and ValueTaskStream, a serial
// FIFO executor that runs enqueued work items one at a time in arrival
// order without ever blocking a caller's thread, and AsyncTaskFlag, a
// self-rearming "run this again if triggered while already running"
// coalescing flag. See SPEC_FULL.md §4.7 and §4.8.
package taskstream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/dispatch"
	"github.com/vanadium-labs/asynclock/future"
)

// node is one link in the lock-free chain serializing task execution: each
// enqueued task swaps itself in as the new tail and, if it displaced a
// predecessor, attaches its own run as a continuation of that predecessor's
// completion rather than blocking a goroutine on it. This is the Go-native
// analogue of a promise chain, built on Future.OnCompletion instead of a
// callback list threaded through a mutex.
type node struct {
	complete *future.Future[struct{}]
}

// core is the shared, type-erased chain state behind both TaskStream and
// ValueTaskStream[T]; the result type only exists at the enqueue call site.
type core struct {
	tail       atomic.Pointer[node]
	pending    int64
	disposed   int32
	dispatcher dispatch.Dispatcher
	mu         sync.Mutex
	drainFut   *future.Future[struct{}]
}

func newCore(d dispatch.Dispatcher) *core {
	if d == nil {
		d = dispatch.Default
	}
	return &core{dispatcher: d}
}

func (c *core) isDisposed() bool {
	return atomic.LoadInt32(&c.disposed) != 0
}

// PendingCount returns the number of tasks enqueued but not yet finished,
// including the one currently running, if any.
func (c *core) PendingCount() int64 {
	return atomic.LoadInt64(&c.pending)
}

// Dispose marks the stream disposed: tasks already running or chained ahead
// of the call are allowed to finish, but any task enqueued afterward fails
// immediately with ErrDisposed. The returned Future settles once every task
// that was pending at the moment of Dispose has finished. Dispose is
// idempotent.
func (c *core) Dispose() *future.Future[struct{}] {
	c.mu.Lock()
	if c.isDisposed() {
		f := c.drainFut
		c.mu.Unlock()
		return f
	}
	atomic.StoreInt32(&c.disposed, 1)
	c.drainFut = future.New[struct{}]()
	f := c.drainFut
	pending := atomic.LoadInt64(&c.pending)
	c.mu.Unlock()
	if pending == 0 {
		f.Complete(struct{}{}, nil)
	}
	return f
}

func (c *core) maybeCompleteDrain() {
	if !c.isDisposed() || atomic.LoadInt64(&c.pending) != 0 {
		return
	}
	c.mu.Lock()
	f := c.drainFut
	c.mu.Unlock()
	if f != nil {
		f.Complete(struct{}{}, nil)
	}
}

// enqueue appends fn to c's chain and returns a Future for its result. fn
// runs only after every task enqueued ahead of it has finished, and never
// runs at all if c was already disposed when Enqueue was called (resolving
// ErrDisposed instead) or if token fires before fn's turn comes up
// (resolving ErrCancelled instead). The chain has no removable queue slot to
// dequeue a cancelled task from the way a waiter.Queue does, so token is
// checked once, right as the task's turn to run arrives: cancellation only
// ever pre-empts a not-yet-started task, exactly as the caller was promised,
// and never interrupts fn once it is running.
func enqueue[T any](c *core, token cancel.Token, fn func() (T, error)) *future.Future[T] {
	var zero T
	if token == nil {
		token = cancel.None()
	}
	if c.isDisposed() {
		return future.Completed(zero, future.ErrDisposed)
	}
	atomic.AddInt64(&c.pending, 1)

	n := &node{complete: future.New[struct{}]()}
	result := future.New[T]()

	run := func() {
		switch {
		case token.IsCancelled():
			result.Complete(zero, future.ErrCancelled)
		default:
			v, err := fn()
			result.Complete(v, err)
		}
		atomic.AddInt64(&c.pending, -1)
		c.maybeCompleteDrain()
		n.complete.Complete(struct{}{}, nil)
	}

	prev := c.tail.Swap(n)
	if prev == nil {
		c.dispatcher.Dispatch(run)
	} else {
		prev.complete.OnCompletion(context.Background(), func(context.Context, struct{}, error) {
			c.dispatcher.Dispatch(run)
		})
	}
	return result
}

// Reset rewinds tail to the terminal sentinel (its zero value), so the next
// Enqueue starts a fresh serial run instead of chaining behind whatever task
// last held the tail. It does not affect disposed state or pending tasks
// already chained; callers typically Reset only once a stream has drained.
func (c *core) Reset() {
	c.tail.Store(nil)
}

// Complete enqueues a no-op task and returns its Future, giving the caller a
// way to wait for "everything enqueued so far has run" without disposing the
// stream the way Dispose does.
func (c *core) Complete() *future.Future[struct{}] {
	return enqueue(c, cancel.None(), func() (struct{}, error) { return struct{}{}, nil })
}
