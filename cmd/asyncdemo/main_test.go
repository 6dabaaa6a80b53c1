package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vanadium-labs/asynclock/cmdline2"
)

func runDemo(t *testing.T, args ...string) (stdout, stderr string) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	env := &cmdline2.Env{Stdout: &outBuf, Stderr: &errBuf, Vars: map[string]string{}}
	if err := cmdline2.ParseAndRun(root, env, args); err != nil {
		t.Fatalf("ParseAndRun(%v): %v\nstderr: %s", args, err, errBuf.String())
	}
	return outBuf.String(), errBuf.String()
}

func TestSemaphoreDemo(t *testing.T) {
	out, _ := runDemo(t, "semaphore", "-max=1")
	if !strings.Contains(out, "released") {
		t.Fatalf("semaphore demo output = %q, want a release to be reported", out)
	}
}

func TestCounterDemo(t *testing.T) {
	out, _ := runDemo(t, "counter")
	if !strings.Contains(out, "Decrement resolved") {
		t.Fatalf("counter demo output = %q", out)
	}
}

func TestRWLockDemo(t *testing.T) {
	out, _ := runDemo(t, "rwlock")
	if !strings.Contains(out, "writer acquired") {
		t.Fatalf("rwlock demo output = %q", out)
	}
}

func TestSwitchLockDemo(t *testing.T) {
	out, _ := runDemo(t, "switchlock")
	if !strings.Contains(out, "switched from left to right") {
		t.Fatalf("switchlock demo output = %q", out)
	}
}

func TestKeyedLockDemo(t *testing.T) {
	out, _ := runDemo(t, "keyedlock", "widget")
	if !strings.Contains(out, `key "widget"`) {
		t.Fatalf("keyedlock demo output = %q", out)
	}
}

func TestTaskFlagDemo(t *testing.T) {
	out, _ := runDemo(t, "taskflag")
	if !strings.Contains(out, "ran 2 times") {
		t.Fatalf("taskflag demo output = %q, want coalescing to 2 runs", out)
	}
}

func TestConfigDemo(t *testing.T) {
	out, _ := runDemo(t, "config")
	if !strings.Contains(out, "dispatchPoolSize=32") {
		t.Fatalf("config demo output = %q, want default pool size", out)
	}
}
