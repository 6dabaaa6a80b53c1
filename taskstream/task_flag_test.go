package taskstream_test

import "context"
import "sync"
import "testing"
import "time"

import "github.com/vanadium-labs/asynclock/cancel"
import "github.com/vanadium-labs/asynclock/dispatch"
import "github.com/vanadium-labs/asynclock/taskstream"

func TestTaskFlagRunsOnce(t *testing.T) {
	var runs int32
	var mu sync.Mutex
	done := make(chan struct{}, 1)
	f := taskstream.New(func(context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
		done <- struct{}{}
	}, taskstream.WithDispatcher(dispatch.GoDispatcher{}))

	f.Set()
	<-done
	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
}

func TestTaskFlagCoalescesDuringRun(t *testing.T) {
	var mu sync.Mutex
	var runs int
	release := make(chan struct{})
	started := make(chan struct{}, 4)

	f := taskstream.New(func(context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
		started <- struct{}{}
		<-release
	}, taskstream.WithDispatcher(dispatch.GoDispatcher{}))

	f.Set()
	<-started // first run is now in progress

	// These should all coalesce into a single rerun, not one run each.
	f.Set()
	f.Set()
	f.Set()

	close(release) // let the first run finish; the coalesced rerun starts
	<-started      // the single coalesced rerun

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	got := runs
	mu.Unlock()
	if got != 2 {
		t.Fatalf("runs = %d, want 2 (one initial run, one coalesced rerun)", got)
	}
}

func TestSetAndWaitResolvesOnIdle(t *testing.T) {
	f := taskstream.New(func(context.Context) {}, taskstream.WithDispatcher(dispatch.GoDispatcher{}))
	fut := f.SetAndWait(cancel.None())
	if _, err := fut.Wait(context.Background()); err != nil {
		t.Fatalf("SetAndWait: %v", err)
	}
	if f.State() != taskstream.Idle {
		t.Fatalf("State() = %v, want Idle", f.State())
	}
}

func TestTaskFlagDisposeFaultsPending(t *testing.T) {
	release := make(chan struct{})
	f := taskstream.New(func(context.Context) { <-release }, taskstream.WithDispatcher(dispatch.GoDispatcher{}))
	f.Set()
	time.Sleep(5 * time.Millisecond) // ensure the run has started
	fut := f.SetAndWait(cancel.None())
	f.Dispose()
	if _, err := fut.Wait(context.Background()); err == nil {
		t.Fatal("SetAndWait succeeded after Dispose")
	}
	close(release)
}
