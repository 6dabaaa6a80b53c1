package cancel_test

import (
	"context"
	"testing"
	"time"

	"github.com/vanadium-labs/asynclock/cancel"
)

func TestNoneNeverCancels(t *testing.T) {
	tok := cancel.None()
	if tok.CanBeCancelled() {
		t.Fatal("None() token reports CanBeCancelled")
	}
	if tok.IsCancelled() {
		t.Fatal("None() token reports IsCancelled before anything happened")
	}
}

func TestSourceCancelFiresToken(t *testing.T) {
	s := cancel.NewSource()
	tok := s.Token()
	if !tok.CanBeCancelled() {
		t.Fatal("token from NewSource should be cancellable")
	}
	if tok.IsCancelled() {
		t.Fatal("token should not start cancelled")
	}
	fired := make(chan struct{})
	tok.Register(func() { close(fired) })
	s.Cancel()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Register callback was not invoked after Cancel")
	}
	if !tok.IsCancelled() {
		t.Fatal("token should report IsCancelled after Cancel")
	}
}

func TestRegisterOnAlreadyCancelledFiresImmediately(t *testing.T) {
	s := cancel.NewSource()
	s.Cancel()
	fired := make(chan struct{})
	s.Token().Register(func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Register on an already-cancelled token did not fire")
	}
}

func TestRegistrationDisposeDetaches(t *testing.T) {
	s := cancel.NewSource()
	var called bool
	reg := s.Token().Register(func() { called = true })
	reg.Dispose()
	s.Cancel()
	time.Sleep(10 * time.Millisecond)
	if called {
		t.Fatal("disposed registration still fired")
	}
}

func TestLinkFiresWhenAnyParentFires(t *testing.T) {
	p1 := cancel.NewSource()
	p2 := cancel.NewSource()
	linked := cancel.Link(p1.Token(), p2.Token())
	if linked.Token().IsCancelled() {
		t.Fatal("linked token cancelled before any parent fired")
	}
	p2.Cancel()
	fired := make(chan struct{})
	linked.Token().Register(func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("linked token did not fire after a parent cancelled")
	}
}

func TestNewSourceWithTimeoutFiresOnItsOwn(t *testing.T) {
	s := cancel.NewSourceWithTimeout(cancel.None(), 5*time.Millisecond)
	select {
	case <-s.Token().Context().Done():
	case <-time.After(time.Second):
		t.Fatal("timeout source did not fire")
	}
}

func TestFromContext(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	tok := cancel.FromContext(ctx)
	if !tok.CanBeCancelled() {
		t.Fatal("FromContext(ctx) with a cancellable context should report CanBeCancelled")
	}
	cancelFn()
	if !tok.IsCancelled() {
		t.Fatal("token should observe its underlying context's cancellation")
	}
}
