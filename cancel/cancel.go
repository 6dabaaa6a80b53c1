// Package cancel implements the polymorphic cancellation token described by
// the External Interfaces contract: a Token exposes IsCancelled,
// CanBeCancelled, and Register; a Source produces Tokens and can cancel them,
// optionally linked to parent tokens so a timeout or an upstream cancellation
// propagates automatically.
//
// Every Token in this package is a thin adapter over context.Context, which
// is the cancellation primitive the rest of the Go ecosystem (and this
// module's own _examples corpus, e.g. bmizerany/wait's List.Take) already
// standardizes on; Register uses context.AfterFunc so a Token's callback
// flows the registering goroutine's ambient context explicitly rather than
// capturing it implicitly, per this module's stance on hidden ambient
// context capture.
package cancel

import (
	"context"
	"time"
)

// Registration is returned by Token.Register. Dispose detaches the
// callback; it is idempotent and safe to call multiple times or never.
type Registration struct {
	dispose func() bool
}

// Dispose detaches the registered callback. If the callback already fired,
// Dispose is a harmless no-op.
func (r Registration) Dispose() {
	if r.dispose != nil {
		r.dispose()
	}
}

// Token is a read-only view of a cancellation source.
type Token interface {
	// IsCancelled reports whether the token has already fired.
	IsCancelled() bool
	// CanBeCancelled reports whether this token is capable of ever firing.
	// A Token that can never be cancelled (see None) lets callers skip
	// registering a hook entirely.
	CanBeCancelled() bool
	// Register arranges for cb to be invoked once, the first time the
	// token fires. If the token has already fired, cb is invoked
	// (asynchronously) immediately.
	Register(cb func()) Registration
	// Context returns the underlying context.Context backing this token,
	// for interop with APIs (including this module's own suspend-capable
	// operations) that accept a context directly.
	Context() context.Context
}

type ctxToken struct {
	ctx context.Context
}

func (t ctxToken) IsCancelled() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

func (t ctxToken) CanBeCancelled() bool {
	return t.ctx.Done() != nil
}

func (t ctxToken) Register(cb func()) Registration {
	if t.ctx.Done() == nil {
		return Registration{}
	}
	stop := context.AfterFunc(t.ctx, cb)
	return Registration{dispose: stop}
}

func (t ctxToken) Context() context.Context {
	return t.ctx
}

// FromContext adapts an existing context.Context as a Token.
func FromContext(ctx context.Context) Token {
	return ctxToken{ctx: ctx}
}

// None returns a Token that can never be cancelled.
func None() Token {
	return ctxToken{ctx: context.Background()}
}

// Source is a cancellation token together with the means to fire it.
// The zero value is not usable; construct one with NewSource,
// NewSourceWithTimeout, or Link.
type Source struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSource creates a Source with no parent and no deadline.
func NewSource() *Source {
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{ctx: ctx, cancel: cancel}
}

// NewSourceWithTimeout creates a Source that self-cancels after d elapses,
// implementing the Timeout variant described by the Concurrency & Resource
// Model: "wrapping the cancellation token with a linked source set to
// self-cancel after the timeout".
func NewSourceWithTimeout(parent Token, d time.Duration) *Source {
	var base context.Context = context.Background()
	if parent != nil {
		base = parent.Context()
	}
	ctx, cancel := context.WithTimeout(base, d)
	return &Source{ctx: ctx, cancel: cancel}
}

// Link creates a Source that fires as soon as any of parents fires, in
// addition to being independently cancellable. This is the "shared
// cancellation source" AsyncCounter.DecrementAny attaches to every input
// counter's peek.
func Link(parents ...Token) *Source {
	base := context.Background()
	if len(parents) > 0 {
		base = parents[0].Context()
	}
	ctx, cancel := context.WithCancel(base)
	s := &Source{ctx: ctx, cancel: cancel}
	for _, p := range parents[1:] {
		p.Register(s.Cancel)
	}
	return s
}

// Token returns the Source's Token.
func (s *Source) Token() Token {
	return ctxToken{ctx: s.ctx}
}

// Cancel fires the Source's token. Idempotent.
func (s *Source) Cancel() {
	s.cancel()
}

// Dispose releases resources associated with the Source (it is equivalent to
// Cancel; context cancellation is always safe to invoke on a settled
// operation since it only ever frees the context's internal timer/goroutine).
func (s *Source) Dispose() {
	s.cancel()
}
