// Package keyedlock implements AsyncKeyedLock, a map of independent FIFO
// locks keyed by a string, each created lazily on
// first use and reclaimed once nothing references it. See SPEC_FULL.md
// §4.6.
package keyedlock

import (
	"context"
	"sync"

	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/dispatch"
	"github.com/vanadium-labs/asynclock/future"
	"github.com/vanadium-labs/asynclock/set"
	"github.com/vanadium-labs/asynclock/waiter"
)

// entry is one key's lock state: whether it is currently held, its FIFO
// wait queue, and a reference count of everything that still needs it to
// stay alive (the current holder's Guard, plus every queued waiter). Once
// refs drops to zero the entry is removed from the owning map, so an
// AsyncKeyedLock never retains state for keys nobody currently contends on.
type entry struct {
	mu    waiter.SpinLock
	held  bool
	queue waiter.Queue
	refs  int // guarded by AsyncKeyedLock.mapMu, not entry.mu
}

// AsyncKeyedLock hands out a per-key mutual-exclusion lock on demand. Map
// bookkeeping (creating, ref-counting, and reclaiming entries) is protected
// by a plain sync.Mutex rather than the spinlock used elsewhere in this
// module: map operations can allocate and are not the short, fixed-length
// critical sections a spinlock is meant for.
type AsyncKeyedLock struct {
	mapMu      sync.Mutex
	entries    map[string]*entry
	disposed   bool
	held       int64 // guards currently on loan across every key; guarded by mapMu
	drain      *future.Future[struct{}]
	pool       waiter.Pool
	dispatcher dispatch.Dispatcher
}

// Option configures a new AsyncKeyedLock.
type Option func(*AsyncKeyedLock)

// WithDispatcher overrides the Dispatcher used to resume waiters.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(l *AsyncKeyedLock) { l.dispatcher = d }
}

// New creates an empty AsyncKeyedLock.
func New(opts ...Option) *AsyncKeyedLock {
	l := &AsyncKeyedLock{entries: make(map[string]*entry), dispatcher: dispatch.Default}
	for _, o := range opts {
		o(l)
	}
	return l
}

// ActiveKeys returns the keys that currently have an entry: a key is active
// from the moment its first locker takes a reference until the last
// reference (the holder or any queued waiter) releases or is dropped. The
// result is a snapshot; it may be stale by the time the caller inspects it.
func (l *AsyncKeyedLock) ActiveKeys() []string {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()
	keys := make(set.Set[string], len(l.entries))
	for k := range l.entries {
		keys.Add(k)
	}
	return keys.ToSlice()
}

func (l *AsyncKeyedLock) ref(key string) (*entry, bool) {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()
	if l.disposed {
		return nil, true
	}
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	return e, false
}

func (l *AsyncKeyedLock) unref(key string, e *entry) {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()
	e.refs--
	if e.refs == 0 {
		if cur, ok := l.entries[key]; ok && cur == e {
			delete(l.entries, key)
		}
	}
}

func (l *AsyncKeyedLock) incHeld() {
	l.mapMu.Lock()
	l.held++
	l.mapMu.Unlock()
}

// TryLock attempts to take key's lock without suspending.
func (l *AsyncKeyedLock) TryLock(key string) *Guard {
	e, disposed := l.ref(key)
	if disposed {
		return nil
	}
	e.mu.Lock()
	if e.held {
		e.mu.Unlock()
		l.unref(key, e)
		return nil
	}
	e.held = true
	e.mu.Unlock()
	l.incHeld()
	return &Guard{lock: l, key: key, entry: e}
}

// Lock suspends the caller until key's lock is granted, the AsyncKeyedLock
// is disposed, or token fires.
func (l *AsyncKeyedLock) Lock(key string, token cancel.Token) *future.Future[*Guard] {
	if token == nil {
		token = cancel.None()
	}
	e, disposed := l.ref(key)
	if disposed {
		return future.Completed[*Guard](nil, future.ErrDisposed)
	}

	e.mu.Lock()
	if !e.held {
		e.held = true
		e.mu.Unlock()
		l.incHeld()
		return future.Completed(&Guard{lock: l, key: key, entry: e}, nil)
	}

	w := l.pool.Get()
	fut := future.New[*Guard]()
	w.Arm(func(err error) {
		if err != nil {
			fut.Complete(nil, err)
			l.unref(key, e)
		} else {
			fut.Complete(&Guard{lock: l, key: key, entry: e}, nil)
		}
		l.pool.Put(w)
	})
	e.queue.PushBack(w)
	e.mu.Unlock()

	if token.CanBeCancelled() {
		reg := token.Register(func() { l.cancelWaiter(e, w) })
		fut.OnCompletion(context.Background(), func(context.Context, *Guard, error) { reg.Dispose() })
	}
	return fut
}

func (l *AsyncKeyedLock) cancelWaiter(e *entry, w *waiter.Waiter) {
	e.mu.Lock()
	present := e.queue.Contains(w)
	if present {
		e.queue.Remove(w)
	}
	e.mu.Unlock()
	if present {
		w.Cancel(future.ErrCancelled)
	}
}

func (l *AsyncKeyedLock) release(key string, e *entry) {
	var toResume *waiter.Waiter

	e.mu.Lock()
	for {
		w := e.queue.PopFront()
		if w == nil {
			break
		}
		if w.State() == waiter.StatePending {
			toResume = w
			break
		}
	}
	if toResume == nil {
		e.held = false
	}
	e.mu.Unlock()

	l.unref(key, e)

	var drainDone bool
	l.mapMu.Lock()
	l.held--
	if toResume != nil {
		l.held++ // the loan transfers directly to the resumed waiter
	}
	if l.disposed && l.held == 0 && l.drain != nil {
		drainDone = true
	}
	drain := l.drain
	l.mapMu.Unlock()

	if toResume != nil {
		l.dispatcher.Dispatch(func() { toResume.Resume(waiter.StateHeld, nil) })
	}
	if drainDone {
		drain.Complete(struct{}{}, nil)
	}
}

// Dispose marks the AsyncKeyedLock disposed: no further Lock or TryLock
// succeeds for any key, and every waiter currently queued on any key is
// faulted with ErrDisposed. Guards already held at the moment of Dispose
// may still be released normally, and the returned Future settles once
// every Guard outstanding at the moment of Dispose, across every key, has
// been released. Dispose is idempotent; later calls return the same drain
// Future.
func (l *AsyncKeyedLock) Dispose() *future.Future[struct{}] {
	l.mapMu.Lock()
	if l.disposed {
		drain := l.drain
		l.mapMu.Unlock()
		return drain
	}
	l.disposed = true
	l.drain = future.New[struct{}]()
	entries := make([]*entry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	heldAtDispose := l.held
	drain := l.drain
	l.mapMu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		waiters := e.queue.DrainAll()
		e.mu.Unlock()
		for _, w := range waiters {
			w := w
			l.dispatcher.Dispatch(func() { w.Resume(waiter.StateDisposed, future.ErrDisposed) })
		}
	}
	if heldAtDispose == 0 {
		drain.Complete(struct{}{}, nil)
	}
	return drain
}

// Guard represents one held per-key lock.
type Guard struct {
	lock     *AsyncKeyedLock
	key      string
	entry    *entry
	released sync.Once
}

// Key returns the key this Guard locks.
func (g *Guard) Key() string { return g.key }

// Release releases the per-key lock. Later calls are a no-op.
func (g *Guard) Release() {
	g.released.Do(func() { g.lock.release(g.key, g.entry) })
}
