package dispatch_test

import (
	"sync"
	"testing"
	"time"

	"github.com/vanadium-labs/asynclock/dispatch"
)

func TestInlineRunsSynchronously(t *testing.T) {
	var ran bool
	dispatch.Inline{}.Dispatch(func() { ran = true })
	if !ran {
		t.Fatal("Inline.Dispatch did not run fn before returning")
	}
}

func TestGoDispatcherRunsOffCaller(t *testing.T) {
	done := make(chan struct{})
	dispatch.GoDispatcher{}.Dispatch(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("GoDispatcher never ran fn")
	}
}

func TestPoolRunsAllTasks(t *testing.T) {
	p := dispatch.NewPool(4)
	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	var mu sync.Mutex
	seen := map[int]bool{}
	for i := 0; i < n; i++ {
		i := i
		p.Dispatch(func() {
			defer wg.Done()
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		})
	}
	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("Pool did not run every dispatched task in time")
	}
	if len(seen) != n {
		t.Fatalf("saw %d distinct tasks, want %d", len(seen), n)
	}
}

func TestPoolDispatchDoesNotBlockWhenSaturated(t *testing.T) {
	p := dispatch.NewPool(1)
	block := make(chan struct{})
	release := make(chan struct{})
	p.Dispatch(func() {
		close(block)
		<-release
	})
	<-block
	done := make(chan struct{})
	go func() {
		p.Dispatch(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked while the pool was saturated")
	}
	close(release)
}
