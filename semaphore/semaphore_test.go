package semaphore_test

import "context"
import "testing"

import "github.com/prometheus/client_golang/prometheus"

import "github.com/vanadium-labs/asynclock/cancel"
import "github.com/vanadium-labs/asynclock/dispatch"
import "github.com/vanadium-labs/asynclock/future"
import "github.com/vanadium-labs/asynclock/lockmetrics"
import "github.com/vanadium-labs/asynclock/semaphore"

func newTestSemaphore(t *testing.T, max int64) *semaphore.AsyncSemaphore {
	t.Helper()
	s, err := semaphore.New(max, semaphore.WithDispatcher(dispatch.Inline{}))
	if err != nil {
		t.Fatalf("semaphore.New: %v", err)
	}
	return s
}

func TestTryTakeRespectsMax(t *testing.T) {
	s := newTestSemaphore(t, 2)
	if !s.TryTake() {
		t.Fatal("TryTake 1 failed")
	}
	if !s.TryTake() {
		t.Fatal("TryTake 2 failed")
	}
	if s.TryTake() {
		t.Fatal("TryTake succeeded beyond max")
	}
}

func TestTakeThenRelease(t *testing.T) {
	s := newTestSemaphore(t, 1)
	fut := s.Take(cancel.None())
	g, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if s.TryTake() {
		t.Fatal("TryTake succeeded while the only unit was on loan")
	}
	g.Release()
	if !s.TryTake() {
		t.Fatal("TryTake failed after Release")
	}
}

func TestTakeSuspendsUntilRelease(t *testing.T) {
	s := newTestSemaphore(t, 1)
	g1, err := s.Take(cancel.None()).Wait(context.Background())
	if err != nil {
		t.Fatalf("Take 1: %v", err)
	}
	fut2 := s.Take(cancel.None())
	select {
	case <-fut2.Done():
		t.Fatal("second Take resolved while the unit was held")
	default:
	}
	g1.Release()
	if _, err := fut2.Wait(context.Background()); err != nil {
		t.Fatalf("Take 2: %v", err)
	}
}

func TestDisposeDrainsOnLastRelease(t *testing.T) {
	s := newTestSemaphore(t, 1)
	g, err := s.Take(cancel.None()).Wait(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	drain := s.Dispose()
	select {
	case <-drain.Done():
		t.Fatal("drain Future settled before the outstanding Guard released")
	default:
	}
	g.Release()
	if _, err := drain.Wait(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func TestDisposeFaultsPendingTake(t *testing.T) {
	s := newTestSemaphore(t, 1)
	if !s.TryTake() {
		t.Fatal("TryTake failed")
	}
	fut := s.Take(cancel.None())
	s.Dispose()
	if _, err := fut.Wait(context.Background()); err != future.ErrDisposed {
		t.Fatalf("Take error = %v, want ErrDisposed", err)
	}
}

func TestSetMaxCountGrowthWakesWaiter(t *testing.T) {
	s := newTestSemaphore(t, 1)
	if !s.TryTake() {
		t.Fatal("TryTake failed")
	}
	fut := s.Take(cancel.None())
	if err := s.SetMaxCount(2); err != nil {
		t.Fatalf("SetMaxCount: %v", err)
	}
	if _, err := fut.Wait(context.Background()); err != nil {
		t.Fatalf("Take: %v", err)
	}
}

func TestCustomMetricsCollectorReceivesEvents(t *testing.T) {
	c := lockmetrics.NewCollector("semaphore_test_custom")
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s, err := semaphore.New(1,
		semaphore.WithDispatcher(dispatch.Inline{}),
		semaphore.WithName("jobs"),
		semaphore.WithMetrics(c),
	)
	if err != nil {
		t.Fatalf("semaphore.New: %v", err)
	}
	if !s.TryTake() {
		t.Fatal("TryTake failed")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var sawGranted bool
	for _, mf := range mfs {
		if mf.GetName() != "asynclock_semaphore_test_custom_acquires_total" {
			continue
		}
		for _, m := range mf.Metric {
			var name, outcome string
			for _, lp := range m.Label {
				switch lp.GetName() {
				case "name":
					name = lp.GetValue()
				case "outcome":
					outcome = lp.GetValue()
				}
			}
			if name == "jobs" && outcome == "granted" && m.Counter.GetValue() == 1 {
				sawGranted = true
			}
		}
	}
	if !sawGranted {
		t.Fatal("custom collector did not record the granted TryTake for name=jobs")
	}
}
