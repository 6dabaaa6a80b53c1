// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timing

import (
	"strings"
	"testing"
	"time"
)

func TestPushPopFinishBuildsNestedTree(t *testing.T) {
	defer func(orig func() time.Time) { nowFunc = orig }(nowFunc)
	now := time.Unix(0, 0)
	nowFunc = func() time.Time { return now }
	advance := func(d time.Duration) { now = now.Add(d) }

	tm := NewTimer("root")
	advance(time.Second)
	tm.Push("a")
	advance(time.Second)
	tm.Push("a.1")
	advance(time.Second)
	tm.Pop()
	tm.Push("a.2")
	advance(time.Second)
	tm.Pop()
	tm.Finish()

	s := tm.String()
	for _, want := range []string{"root", "a ", "a.1", "a.2"} {
		if !strings.Contains(s, want) {
			t.Fatalf("String() = %q, want it to contain %q", s, want)
		}
	}
	if strings.Count(s, "\n") != 4 {
		t.Fatalf("String() = %q, want 4 lines (root, a, a.1, a.2)", s)
	}
}

func TestPopAtRootIsNoOp(t *testing.T) {
	tm := NewTimer("root")
	tm.Pop()
	tm.Push("child")
	tm.Finish()
	if !strings.Contains(tm.String(), "child") {
		t.Fatalf("String() = %q, want it to contain %q", tm.String(), "child")
	}
}

func TestFinishClosesEverythingOpen(t *testing.T) {
	defer func(orig func() time.Time) { nowFunc = orig }(nowFunc)
	now := time.Unix(0, 0)
	nowFunc = func() time.Time { return now }

	tm := NewTimer("root")
	tm.Push("a")
	now = now.Add(5 * time.Second)
	tm.Finish()

	if got := timerDuration(tm.interval(tm.points)); got != 5*time.Second {
		t.Fatalf("root duration = %v, want 5s", got)
	}
}
