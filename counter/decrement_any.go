package counter

import (
	"context"
	"sync"

	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/future"
)

// DecrementAny races PeekDecrement across counters and returns the index of
// whichever one it ultimately decremented. It implements §4.2's
// Decrement-Any: every counter's peek shares one linked cancellation source,
// so the instant one peek resolves successfully every other peek is
// cancelled before it can also claim a unit.
//
// If the winning peek's subsequent TryDecrement loses a race to an
// unrelated direct decrementer (the peek only promises availability, not a
// reservation), DecrementAny retries from scratch rather than surfacing a
// spurious failure. If every counter reports Disposed, the returned error is
// an AggregateError of each one's failure.
func DecrementAny(counters []*AsyncCounter, token cancel.Token) *future.Future[int] {
	if len(counters) == 0 {
		return future.Completed(-1, &future.ArgumentError{Name: "counters", Reason: "must be non-empty"})
	}
	if token == nil {
		token = cancel.None()
	}
	out := future.New[int]()
	decrementAnyAttempt(counters, token, out)
	return out
}

func decrementAnyAttempt(counters []*AsyncCounter, token cancel.Token, out *future.Future[int]) {
	for i, c := range counters {
		if c.TryDecrement() {
			out.Complete(i, nil)
			return
		}
	}

	src := cancel.Link(token)
	var mu sync.Mutex
	done := false
	remaining := len(counters)
	var errs []error

	for i, c := range counters {
		i, c := i, c
		c.PeekDecrement(src.Token()).OnCompletion(context.Background(), func(_ context.Context, _ struct{}, err error) {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			if err != nil {
				remaining--
				errs = append(errs, err)
				if remaining > 0 {
					mu.Unlock()
					return
				}
				done = true
				mu.Unlock()
				src.Cancel()
				out.Complete(-1, future.NewAggregateError(errs...))
				return
			}
			done = true
			mu.Unlock()
			src.Cancel()
			if c.TryDecrement() {
				out.Complete(i, nil)
			} else {
				decrementAnyAttempt(counters, token, out)
			}
		})
	}

	if token.CanBeCancelled() {
		reg := token.Register(func() {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			done = true
			mu.Unlock()
			src.Cancel()
			out.Complete(-1, future.ErrCancelled)
		})
		out.OnCompletion(context.Background(), func(context.Context, int, error) { reg.Dispose() })
	}
}
