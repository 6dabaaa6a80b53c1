package future

import (
	"context"
	"sync"
	"time"

	"github.com/vanadium-labs/asynclock/cancel"
)

// When implements the Cancellable Await Adapter: it returns a new Future
// that completes with inner's outcome unless token fires first, in which
// case the returned Future completes with ErrCancelled while inner is left
// to settle on its own (its eventual result is still observed via
// OnCompletion, never left unobserved). If token cannot be cancelled, inner
// is returned directly, exactly as spec'd.
func When[T any](inner *Future[T], token cancel.Token) *Future[T] {
	if !token.CanBeCancelled() {
		return inner
	}

	out := New[T]()
	var once sync.Once
	var mu sync.Mutex
	var reg cancel.Registration

	mu.Lock()
	reg = token.Register(func() {
		once.Do(func() {
			var zero T
			out.Complete(zero, ErrCancelled)
		})
	})
	mu.Unlock()

	inner.OnCompletion(context.Background(), func(_ context.Context, v T, err error) {
		once.Do(func() {
			mu.Lock()
			r := reg
			mu.Unlock()
			r.Dispose()
			out.Complete(v, err)
		})
	})

	return out
}

// WithTimeout composes When with a Source that self-cancels after d, the
// Timeout variant described in the Concurrency & Resource Model. The
// returned Source is disposed automatically once the returned Future
// settles, whichever way it settles.
func WithTimeout[T any](inner *Future[T], parent cancel.Token, d time.Duration) *Future[T] {
	src := cancel.NewSourceWithTimeout(parent, d)
	out := When(inner, src.Token())
	out.OnCompletion(context.Background(), func(context.Context, T, error) {
		src.Dispose()
	})
	return out
}
