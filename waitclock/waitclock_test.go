package waitclock_test

import (
	"strings"
	"testing"
	"time"

	"github.com/vanadium-labs/asynclock/waitclock"
)

func TestFinishReportsElapsed(t *testing.T) {
	c := waitclock.Start("semaphore.Take")
	c.Mark("queued")
	time.Sleep(2 * time.Millisecond)
	c.Mark("granted")
	d := c.Finish()
	if d < 2*time.Millisecond {
		t.Fatalf("Finish() = %v, want >= 2ms", d)
	}
}

func TestStringIncludesPhaseNames(t *testing.T) {
	c := waitclock.Start("rwlock.LockWrite")
	c.Mark("queued")
	c.Mark("promoted")
	c.Finish()
	s := c.String()
	if !strings.Contains(s, "queued") || !strings.Contains(s, "promoted") {
		t.Fatalf("String() = %q, want phases queued and promoted", s)
	}
}
