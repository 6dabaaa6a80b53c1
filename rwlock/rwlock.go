// Package rwlock implements AsyncReadWriteLock, a reader/writer lock whose
// acquire operations suspend instead of blocking a thread. See SPEC_FULL.md
// §4.4.
package rwlock

import (
	"context"
	"sync"

	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/dispatch"
	"github.com/vanadium-labs/asynclock/future"
	"github.com/vanadium-labs/asynclock/waiter"
)

// Mode selects how a particular LockRead/LockWrite call behaves when a
// writer is already queued.
type Mode int

const (
	// Unfair lets a reader join an already-read-held lock even if writers
	// are queued behind it, favoring throughput over writer fairness.
	Unfair Mode = iota
	// Fair makes a reader queue behind any writer that arrived first,
	// exactly as a writer always queues behind an active reader cohort.
	Fair
)

// AsyncReadWriteLock allows any number of concurrent readers, or exactly one
// writer, never both. Writers queue strictly FIFO against each other; on a
// writer's release, every reader waiting at that moment is promoted as one
// cohort (nsync's mu/cv "wake the whole waiting set" pattern, applied to
// readers instead of condition-variable waiters) before any later writer is
// considered.
type AsyncReadWriteLock struct {
	mu           waiter.SpinLock
	readers      int64
	writerHeld   bool
	disposed     bool
	pool         waiter.Pool
	readWaiters  waiter.Queue
	writeWaiters waiter.Queue
	dispatcher   dispatch.Dispatcher
}

// Option configures a new AsyncReadWriteLock.
type Option func(*AsyncReadWriteLock)

// WithDispatcher overrides the Dispatcher used to resume waiters.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(l *AsyncReadWriteLock) { l.dispatcher = d }
}

// New creates an unlocked AsyncReadWriteLock.
func New(opts ...Option) *AsyncReadWriteLock {
	l := &AsyncReadWriteLock{dispatcher: dispatch.Default}
	for _, o := range opts {
		o(l)
	}
	return l
}

// TryLockRead attempts to take a read lock without suspending. It ignores
// any queued writers, since a non-suspending Try is inherently unfair.
func (l *AsyncReadWriteLock) TryLockRead() *ReadGuard {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed || l.writerHeld {
		return nil
	}
	l.readers++
	return &ReadGuard{lock: l}
}

// TryLockWrite attempts to take the write lock without suspending.
func (l *AsyncReadWriteLock) TryLockWrite() *WriteGuard {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed || l.writerHeld || l.readers > 0 {
		return nil
	}
	l.writerHeld = true
	return &WriteGuard{lock: l}
}

// LockRead suspends the caller until a read lock is granted, the lock is
// disposed, or token fires.
func (l *AsyncReadWriteLock) LockRead(token cancel.Token, mode Mode) *future.Future[*ReadGuard] {
	if token == nil {
		token = cancel.None()
	}
	l.mu.Lock()
	if !l.disposed && !l.writerHeld && (mode == Unfair || l.writeWaiters.Empty()) {
		l.readers++
		l.mu.Unlock()
		return future.Completed(&ReadGuard{lock: l}, nil)
	}
	if l.disposed {
		l.mu.Unlock()
		return future.Completed[*ReadGuard](nil, future.ErrDisposed)
	}

	w := l.pool.Get()
	fut := future.New[*ReadGuard]()
	w.Arm(func(err error) {
		if err != nil {
			fut.Complete(nil, err)
		} else {
			fut.Complete(&ReadGuard{lock: l}, nil)
		}
		l.pool.Put(w)
	})
	l.readWaiters.PushBack(w)
	l.mu.Unlock()

	if token.CanBeCancelled() {
		reg := token.Register(func() { l.cancelWaiter(w, &l.readWaiters) })
		fut.OnCompletion(context.Background(), func(context.Context, *ReadGuard, error) { reg.Dispose() })
	}
	return fut
}

// LockWrite suspends the caller until the write lock is granted, the lock
// is disposed, or token fires. mode only affects how concurrent readers
// behave around this pending writer; writers are always strictly FIFO
// against each other.
func (l *AsyncReadWriteLock) LockWrite(token cancel.Token, mode Mode) *future.Future[*WriteGuard] {
	if token == nil {
		token = cancel.None()
	}
	l.mu.Lock()
	if !l.disposed && !l.writerHeld && l.readers == 0 {
		l.writerHeld = true
		l.mu.Unlock()
		return future.Completed(&WriteGuard{lock: l}, nil)
	}
	if l.disposed {
		l.mu.Unlock()
		return future.Completed[*WriteGuard](nil, future.ErrDisposed)
	}

	w := l.pool.Get()
	fut := future.New[*WriteGuard]()
	w.Arm(func(err error) {
		if err != nil {
			fut.Complete(nil, err)
		} else {
			fut.Complete(&WriteGuard{lock: l}, nil)
		}
		l.pool.Put(w)
	})
	l.writeWaiters.PushBack(w)
	l.mu.Unlock()

	if token.CanBeCancelled() {
		reg := token.Register(func() { l.cancelWaiter(w, &l.writeWaiters) })
		fut.OnCompletion(context.Background(), func(context.Context, *WriteGuard, error) { reg.Dispose() })
	}
	return fut
}

func (l *AsyncReadWriteLock) cancelWaiter(w *waiter.Waiter, q *waiter.Queue) {
	l.mu.Lock()
	present := q.Contains(w)
	if present {
		q.Remove(w)
	}
	l.mu.Unlock()
	if present {
		w.Cancel(future.ErrCancelled)
	}
}

func (l *AsyncReadWriteLock) releaseRead() {
	var toResume *waiter.Waiter

	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		for {
			w := l.writeWaiters.PopFront()
			if w == nil {
				break
			}
			if w.State() == waiter.StatePending {
				toResume = w
				l.writerHeld = true
				break
			}
		}
	}
	l.mu.Unlock()

	if toResume != nil {
		l.dispatcher.Dispatch(func() { toResume.Resume(waiter.StateHeld, nil) })
	}
}

func (l *AsyncReadWriteLock) releaseWrite() {
	var readersToResume []*waiter.Waiter
	var writerToResume *waiter.Waiter

	l.mu.Lock()
	l.writerHeld = false
	readersToResume = l.readWaiters.DrainAll()
	if len(readersToResume) > 0 {
		l.readers = int64(len(readersToResume))
	} else {
		for {
			w := l.writeWaiters.PopFront()
			if w == nil {
				break
			}
			if w.State() == waiter.StatePending {
				writerToResume = w
				l.writerHeld = true
				break
			}
		}
	}
	l.mu.Unlock()

	for _, w := range readersToResume {
		w := w
		l.dispatcher.Dispatch(func() { w.Resume(waiter.StateHeld, nil) })
	}
	if writerToResume != nil {
		l.dispatcher.Dispatch(func() { writerToResume.Resume(waiter.StateHeld, nil) })
	}
}

// Dispose marks the lock disposed: no further Lock succeeds, and every
// pending waiter is faulted with ErrDisposed. It does not wait for
// currently-held guards to release; pair with external bookkeeping if a
// drain signal is needed. Dispose is idempotent.
func (l *AsyncReadWriteLock) Dispose() {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return
	}
	l.disposed = true
	readers := l.readWaiters.DrainAll()
	writers := l.writeWaiters.DrainAll()
	l.mu.Unlock()

	for _, w := range readers {
		w := w
		l.dispatcher.Dispatch(func() { w.Resume(waiter.StateDisposed, future.ErrDisposed) })
	}
	for _, w := range writers {
		w := w
		l.dispatcher.Dispatch(func() { w.Resume(waiter.StateDisposed, future.ErrDisposed) })
	}
}

// ReadGuard represents one held read lock.
type ReadGuard struct {
	lock     *AsyncReadWriteLock
	released sync.Once
}

// Release releases the read lock. Later calls are a no-op.
func (g *ReadGuard) Release() {
	g.released.Do(g.lock.releaseRead)
}

// WriteGuard represents the held write lock.
type WriteGuard struct {
	lock     *AsyncReadWriteLock
	released sync.Once
}

// Release releases the write lock. Later calls are a no-op.
func (g *WriteGuard) Release() {
	g.released.Do(g.lock.releaseWrite)
}
