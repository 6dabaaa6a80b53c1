// Package semaphore implements AsyncSemaphore, a counting semaphore with an
// adjustable maximum and suspend-on-Take semantics, plus a scoped Guard for
// releasing by defer. See SPEC_FULL.md §4.3.
package semaphore

import (
	"context"
	"sync"

	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/dispatch"
	"github.com/vanadium-labs/asynclock/future"
	"github.com/vanadium-labs/asynclock/lockmetrics"
	"github.com/vanadium-labs/asynclock/obslog"
	"github.com/vanadium-labs/asynclock/waitclock"
	"github.com/vanadium-labs/asynclock/waiter"
)

var defaultMetrics = lockmetrics.NewCollector("semaphore")

// AsyncSemaphore bounds concurrent access to maxCount units. Unlike
// AsyncCounter, which is a bare non-negative integer, a semaphore tracks how
// many units are currently held so Dispose can return a Future that settles
// once every outstanding Guard has been released.
type AsyncSemaphore struct {
	mu         waiter.SpinLock
	current    int64 // units available to take right now
	maxCount   int64
	held       int64 // units currently on loan, tracked so Dispose can drain
	disposed   bool
	drain      *future.Future[struct{}]
	pool       waiter.Pool
	waiters    waiter.Queue
	dispatcher dispatch.Dispatcher

	name       string
	metricsSrc *lockmetrics.Collector
	metrics    *lockmetrics.Instance
	log        *obslog.Logger
}

// Option configures a new AsyncSemaphore.
type Option func(*AsyncSemaphore)

// WithDispatcher overrides the Dispatcher used to resume waiters.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(s *AsyncSemaphore) { s.dispatcher = d }
}

// WithName sets the name this semaphore reports under in metrics and log
// lines. Defaults to "semaphore" if unset.
func WithName(name string) Option {
	return func(s *AsyncSemaphore) { s.name = name }
}

// WithMetrics reports acquire outcomes and wait durations through c instead
// of the package-wide default collector.
func WithMetrics(c *lockmetrics.Collector) Option {
	return func(s *AsyncSemaphore) { s.metricsSrc = c }
}

// WithLogger overrides the Logger used for verbose acquire/release tracing.
// Defaults to obslog.Default.
func WithLogger(l *obslog.Logger) Option {
	return func(s *AsyncSemaphore) { s.log = l }
}

// New creates an AsyncSemaphore with maxCount units, all initially
// available.
func New(maxCount int64, opts ...Option) (*AsyncSemaphore, error) {
	if maxCount <= 0 {
		return nil, &future.ArgumentError{Name: "maxCount", Reason: "must be > 0"}
	}
	s := &AsyncSemaphore{
		current:    maxCount,
		maxCount:   maxCount,
		dispatcher: dispatch.Default,
		name:       "semaphore",
		log:        obslog.Default,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metricsSrc == nil {
		s.metricsSrc = defaultMetrics
	}
	s.metrics = s.metricsSrc.For(s.name)
	s.metrics.SetHeld(0)
	return s, nil
}

// CurrentCount returns the number of units presently available to take.
func (s *AsyncSemaphore) CurrentCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// MaxCount returns the semaphore's configured maximum.
func (s *AsyncSemaphore) MaxCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxCount
}

// SetMaxCount adjusts the maximum, growing or shrinking current availability
// by the delta. Shrinking below the number of units already on loan is
// permitted; availability simply stays at zero until enough Releases bring
// it back up.
func (s *AsyncSemaphore) SetMaxCount(maxCount int64) error {
	if maxCount <= 0 {
		return &future.ArgumentError{Name: "maxCount", Reason: "must be > 0"}
	}
	var toResume []*waiter.Waiter
	s.mu.Lock()
	delta := maxCount - s.maxCount
	s.maxCount = maxCount
	s.current += delta
	if s.current < 0 {
		s.current = 0
	}
	for s.current > 0 {
		w := s.waiters.PopFront()
		if w == nil {
			break
		}
		s.current--
		s.held++
		toResume = append(toResume, w)
	}
	s.mu.Unlock()

	for _, w := range toResume {
		w := w
		s.dispatcher.Dispatch(func() { w.Resume(waiter.StateHeld, nil) })
	}
	return nil
}

// TryTake attempts to take one unit without suspending.
func (s *AsyncSemaphore) TryTake() bool {
	s.mu.Lock()
	if s.disposed || s.current == 0 {
		s.mu.Unlock()
		return false
	}
	s.current--
	s.held++
	held := s.held
	s.mu.Unlock()
	s.metrics.ObserveAcquire(lockmetrics.OutcomeGranted, 0)
	s.metrics.SetHeld(float64(held))
	return true
}

// Take suspends the caller until a unit is available, the semaphore is
// disposed, or token fires. The returned Future resolves with a Guard whose
// Release must be called exactly once.
func (s *AsyncSemaphore) Take(token cancel.Token) *future.Future[*Guard] {
	if token == nil {
		token = cancel.None()
	}
	clock := waitclock.Start("semaphore.Take")
	s.mu.Lock()
	if !s.disposed && s.current > 0 {
		s.current--
		s.held++
		held := s.held
		s.mu.Unlock()
		s.metrics.ObserveAcquire(lockmetrics.OutcomeGranted, clock.Finish())
		s.metrics.SetHeld(float64(held))
		return future.Completed(&Guard{sem: s}, nil)
	}
	if s.disposed {
		s.mu.Unlock()
		s.metrics.ObserveAcquire(lockmetrics.OutcomeDisposed, 0)
		return future.Completed[*Guard](nil, future.ErrDisposed)
	}

	clock.Mark("queued")
	w := s.pool.Get()
	fut := future.New[*Guard]()
	w.Arm(func(err error) {
		if err != nil {
			switch err {
			case future.ErrDisposed:
				s.metrics.ObserveAcquire(lockmetrics.OutcomeDisposed, clock.Finish())
			default:
				s.metrics.ObserveAcquire(lockmetrics.OutcomeCancelled, clock.Finish())
			}
			fut.Complete(nil, err)
		} else {
			s.metrics.ObserveAcquire(lockmetrics.OutcomeGranted, clock.Finish())
			fut.Complete(&Guard{sem: s}, nil)
		}
		s.pool.Put(w)
	})
	s.waiters.PushBack(w)
	s.metrics.SetQueued(float64(s.waiters.Len()))
	s.mu.Unlock()
	s.log.VInfof(1, "%s", obslog.Event{Primitive: s.name, Op: "queued"})

	if token.CanBeCancelled() {
		reg := token.Register(func() { s.cancelWaiter(w) })
		fut.OnCompletion(context.Background(), func(context.Context, *Guard, error) { reg.Dispose() })
	}
	return fut
}

func (s *AsyncSemaphore) cancelWaiter(w *waiter.Waiter) {
	s.mu.Lock()
	present := s.waiters.Contains(w)
	if present {
		s.waiters.Remove(w)
	}
	s.mu.Unlock()
	if present {
		w.Cancel(future.ErrCancelled)
	}
}

// release returns one unit to the semaphore, called exactly once by each
// Guard's Release.
func (s *AsyncSemaphore) release() {
	var toResume *waiter.Waiter
	var drainDone bool

	s.mu.Lock()
	s.held--
	for {
		w := s.waiters.PopFront()
		if w == nil {
			break
		}
		if w.State() == waiter.StatePending {
			toResume = w
			s.held++
			break
		}
	}
	if toResume == nil {
		s.current++
	}
	if s.disposed && s.held == 0 && s.drain != nil {
		drainDone = true
	}
	held := s.held
	queued := s.waiters.Len()
	drain := s.drain
	s.mu.Unlock()

	s.metrics.SetHeld(float64(held))
	s.metrics.SetQueued(float64(queued))
	if toResume != nil {
		s.dispatcher.Dispatch(func() { toResume.Resume(waiter.StateHeld, nil) })
	}
	if drainDone {
		drain.Complete(struct{}{}, nil)
	}
}

// Dispose marks the semaphore disposed: no further Take succeeds, every
// pending waiter is faulted with ErrDisposed, and the returned Future
// settles once every Guard outstanding at the moment of Dispose has been
// Released. Dispose is idempotent; later calls return the same drain
// Future.
func (s *AsyncSemaphore) Dispose() *future.Future[struct{}] {
	s.mu.Lock()
	if s.disposed {
		drain := s.drain
		s.mu.Unlock()
		return drain
	}
	s.disposed = true
	s.drain = future.New[struct{}]()
	waiters := s.waiters.DrainAll()
	heldAtDispose := s.held
	drain := s.drain
	s.mu.Unlock()

	s.metrics.SetQueued(0)
	s.log.VInfof(1, "%s", obslog.Event{Primitive: s.name, Op: "dispose"})
	for _, w := range waiters {
		w := w
		s.dispatcher.Dispatch(func() { w.Resume(waiter.StateDisposed, future.ErrDisposed) })
	}
	if heldAtDispose == 0 {
		drain.Complete(struct{}{}, nil)
	}
	return drain
}

// Guard represents one unit on loan from an AsyncSemaphore. Release must be
// called exactly once; later calls are a no-op, since double-releasing a
// semaphore silently is a common source of over-admission bugs, and a loud
// panic would be worse than an idempotent no-op in production code already
// past the point of recovery.
type Guard struct {
	sem      *AsyncSemaphore
	released sync.Once
}

// Release returns the unit this Guard represents.
func (g *Guard) Release() {
	g.released.Do(g.sem.release)
}
