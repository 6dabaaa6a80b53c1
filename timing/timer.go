// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package timing implements a single hierarchical timer: a tree of named,
// non-overlapping intervals built up by Push and Pop calls and closed out by
// Finish. This module's waitclock.Clock is the only caller, and only ever
// drives Push, Pop, Finish, and String, so this package carries just that
// one shape rather than the original's pluggable Timer interface with
// interchangeable memory/precision trade-offs.
package timing

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// nowFunc is used rather than direct calls to time.Now to allow tests to
// inject a different clock function.
var nowFunc = time.Now

// Timer tracks a tree of hierarchical time intervals. It maintains a notion
// of a current interval, initialized to the root; Push appends a child and
// descends into it, Pop returns to the parent, and Finish closes everything
// still open, including the root.
//
// Timer only records a timestamp on Push and Finish, on the assumption that
// the gap between a Pop and the following Push or Finish is negligible for
// the acquire-phase timing this module uses it for; the alternative of
// stamping every Pop too was dropped along with the variant that did it.
type Timer struct {
	points []point
	depth  int
	zero   time.Time
}

// point represents one interval. Since intervals are disjoint and adjacent,
// only the time the *next* interval starts needs recording; that also
// closes the current one unless a deeper child follows it.
type point struct {
	label     string
	depth     int
	nextStart time.Duration
}

const invalidNext = time.Duration(-1 << 63)

// NewTimer returns a Timer with its root interval named name.
func NewTimer(name string) *Timer {
	return &Timer{
		points: []point{{label: name, depth: 0, nextStart: invalidNext}},
		zero:   nowFunc(),
	}
}

// Push appends a child interval named name to the current interval, and
// descends into it.
func (t *Timer) Push(name string) {
	t.depth++
	t.points[len(t.points)-1].nextStart = nowFunc().Sub(t.zero)
	t.points = append(t.points, point{label: name, depth: t.depth, nextStart: invalidNext})
}

// Pop closes the current interval and returns to its parent. It is a no-op
// if the current interval is already the root.
func (t *Timer) Pop() {
	if t.depth > 0 {
		t.depth--
	}
}

// Finish closes every open interval, including the root.
func (t *Timer) Finish() {
	t.depth = 0
	t.points[len(t.points)-1].nextStart = nowFunc().Sub(t.zero)
}

// String renders the tree of phases recorded so far, one indented line per
// interval with its start offset and duration, for diagnostic logging under
// a raised verbosity level.
func (t *Timer) String() string {
	var buf bytes.Buffer
	root := t.interval(t.points)
	writeInterval(&buf, root, 0)
	return buf.String()
}

// interval is a read-only view over a (sub)slice of points rooted at
// points[0], computed on demand from Timer's flat, append-only slice.
type interval struct {
	points []point
	start  time.Time
	zero   time.Time
}

func (t *Timer) interval(points []point) interval {
	return interval{points: points, start: t.zero, zero: t.zero}
}

func (iv interval) name() string { return iv.points[0].label }

func (iv interval) end() time.Time {
	if next := iv.points[len(iv.points)-1].nextStart; next != invalidNext {
		return iv.zero.Add(next)
	}
	return time.Time{}
}

// children returns the indices into iv.points of its immediate children:
// every point one level deeper than the root, up to (not including) the
// next point at the root's own depth or shallower.
func (iv interval) children() (idx []int) {
	if len(iv.points) < 2 {
		return nil
	}
	target := iv.points[0].depth + 1
	for i := 1; i < len(iv.points); i++ {
		if iv.points[i].depth == target {
			idx = append(idx, i)
		}
	}
	return idx
}

func (iv interval) child(children []int, n int) interval {
	beg := children[n]
	end := len(iv.points)
	if n+1 < len(children) {
		end = children[n+1]
	}
	points := iv.points[beg:end]
	return interval{
		points: points,
		start:  iv.zero.Add(iv.points[beg-1].nextStart),
		zero:   iv.zero,
	}
}

// writeInterval renders iv and its children depth-first, indenting two
// spaces per level.
func writeInterval(buf *bytes.Buffer, iv interval, depth int) {
	pad := strings.Repeat("  ", depth)
	dur := timerDuration(iv)
	fmt.Fprintf(buf, "%s%s %.6fs\n", pad, iv.name(), dur.Seconds())
	children := iv.children()
	for i := range children {
		writeInterval(buf, iv.child(children, i), depth+1)
	}
}

// timerDuration returns the elapsed time of iv: from its start to its end if
// it has one, otherwise from its start to now.
func timerDuration(iv interval) time.Duration {
	end := iv.end()
	if end.IsZero() {
		return nowFunc().Sub(iv.start)
	}
	return end.Sub(iv.start)
}
