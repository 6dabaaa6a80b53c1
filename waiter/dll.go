// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package waiter implements the pooled, cancellation-aware suspended-caller
// node shared by every primitive in this module (counter, semaphore, rwlock,
// switchlock, keyedlock). It is the Go analogue of nsync's internal waiter
// and doubly-linked-list machinery, generalized with an atomic state machine
// and a monotonic token version so pooled waiters can detect stale use.
package waiter

// dll is an element of a circular doubly linked list, used as a sentinel
// (list head) or as an intrusive link embedded in a Waiter.
type dll struct {
	next *dll
	prev *dll
	elem *Waiter // the Waiter this link is embedded in, nil for a sentinel head.
}

// makeEmpty makes *l an empty list. Requires that *l is not currently part of
// a non-empty list.
func (l *dll) makeEmpty() {
	l.next = l
	l.prev = l
}

// isEmpty reports whether list *l is empty. Requires *l to be a head.
func (l *dll) isEmpty() bool {
	return l.next == l
}

// insertAfter inserts *e into the list immediately after *p.
func (e *dll) insertAfter(p *dll) {
	e.next = p.next
	e.prev = p
	e.next.prev = e
	e.prev.next = e
}

// remove removes *e from whatever list it is currently linked into.
func (e *dll) remove() {
	e.next.prev = e.prev
	e.prev.next = e.next
	e.next = e
	e.prev = e
}

// isInList reports whether e is reachable from head l.
func (e *dll) isInList(l *dll) bool {
	for p := l.next; p != l; p = p.next {
		if p == e {
			return true
		}
	}
	return false
}
