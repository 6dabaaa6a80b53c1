// Package dispatch provides the "queue this work item" facility the
// Concurrency & Resource Model requires every primitive to use when
// resuming a waiter: resumption must never run inline on the releasing
// goroutine, because the resumed continuation may itself call straight back
// into the primitive (e.g. re-acquire, then release again), which would
// otherwise grow the releasing goroutine's call stack without bound.
//
// This is the idiomatic Go counterpart of nsync's implicit reliance on the
// Go runtime's own M:N scheduling: nsync wakes a waiter by flipping an
// atomic flag and posting to a channel-backed binary semaphore, which the
// waiting goroutine's own stack picks up, so wakeups already run "elsewhere"
// for free. A Dispatcher makes that same "elsewhere" explicit and
// injectable, so tests can run it synchronously for deterministic
// interleavings, and production code can cap fan-out.
package dispatch

import "sync"

// Dispatcher runs fn "later", off the calling goroutine. Implementations
// must not invoke fn synchronously on the calling goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

// GoDispatcher dispatches every task onto its own new goroutine. It never
// blocks and never drops work, at the cost of unbounded goroutine creation
// under heavy contention.
type GoDispatcher struct{}

// Dispatch implements Dispatcher.
func (GoDispatcher) Dispatch(fn func()) {
	go fn()
}

// Default is the package-level Dispatcher primitives use when none is
// supplied explicitly.
var Default Dispatcher = &Pool{size: defaultPoolSize()}

// Pool is a bounded pool of long-lived worker goroutines, grounded on the
// worker-pool shape common across this module's surrounding corpus (e.g. a
// fixed goroutine count pulling closures off a shared channel). Unlike a
// naive worker pool, Pool never blocks a caller: if every worker is busy and
// the queue is full, Dispatch spills over to a fresh goroutine rather than
// making the releasing caller wait, since waiting here would reintroduce
// exactly the unbounded-stack-growth risk this package exists to avoid.
type Pool struct {
	size  int
	once  sync.Once
	tasks chan func()
}

func defaultPoolSize() int {
	return 32
}

// NewPool creates a Pool with size worker goroutines and a queue of the
// same capacity.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = defaultPoolSize()
	}
	p := &Pool{size: size}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		if p.size <= 0 {
			p.size = defaultPoolSize()
		}
		p.tasks = make(chan func(), p.size)
		for i := 0; i < p.size; i++ {
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	for fn := range p.tasks {
		fn()
	}
}

// Dispatch implements Dispatcher.
func (p *Pool) Dispatch(fn func()) {
	p.start()
	select {
	case p.tasks <- fn:
	default:
		go fn()
	}
}

// Inline runs fn synchronously on the calling goroutine. It exists
// exclusively for tests that need deterministic, single-threaded
// interleavings; production callers must never use it, since it reintroduces
// the unbounded-stack-growth hazard Dispatcher exists to prevent.
type Inline struct{}

// Dispatch implements Dispatcher.
func (Inline) Dispatch(fn func()) {
	fn()
}
