package obslog_test

import (
	"testing"

	"github.com/vanadium-labs/asynclock/obslog"
)

func TestVerbosityGating(t *testing.T) {
	l := obslog.New("test")
	l.SetVerbosity(2)
	if !l.V(0) || !l.V(2) {
		t.Fatal("V(level) false for level <= configured verbosity")
	}
	if l.V(3) {
		t.Fatal("V(level) true for level > configured verbosity")
	}
}

func TestLogEventFormatsDetail(t *testing.T) {
	e := obslog.Event{Primitive: "semaphore", Op: "take", Detail: "current=1"}
	want := "semaphore[take] current=1"
	if got := e.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	bare := obslog.Event{Primitive: "rwlock", Op: "dispose"}
	if got := bare.String(); got != "rwlock[dispose]" {
		t.Fatalf("String() = %q, want %q", got, "rwlock[dispose]")
	}
}

func TestDefaultLoggerIsUsable(t *testing.T) {
	obslog.Default.Infof("smoke test %d", 1)
	obslog.Default.VInfof(100, "suppressed unless verbosity raised")
	obslog.Default.Flush()
}
