package lockmetrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vanadium-labs/asynclock/lockmetrics"
)

func TestObserveAcquireGrantedRecordsWait(t *testing.T) {
	c := lockmetrics.NewCollector("semaphore")
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	inst := c.For("jobs")
	inst.ObserveAcquire(lockmetrics.OutcomeGranted, 5*time.Millisecond)
	inst.ObserveAcquire(lockmetrics.OutcomeCancelled, 0)
	inst.SetHeld(3)
	inst.SetQueued(2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var sawGranted, sawCancelled bool
	for _, mf := range mfs {
		if mf.GetName() != "asynclock_semaphore_acquires_total" {
			continue
		}
		for _, m := range mf.Metric {
			if labelValue(m, "outcome") == "granted" && m.Counter.GetValue() == 1 {
				sawGranted = true
			}
			if labelValue(m, "outcome") == "cancelled" && m.Counter.GetValue() == 1 {
				sawCancelled = true
			}
		}
	}
	if !sawGranted || !sawCancelled {
		t.Fatalf("acquires_total missing expected label combinations: granted=%v cancelled=%v", sawGranted, sawCancelled)
	}
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.Label {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
