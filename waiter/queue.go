// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package waiter

// Queue is a FIFO of enqueued Waiters, backed by the same doubly linked list
// nsync uses for Mu.waiters and CV.waiters. Like those, a Queue is not
// internally synchronized: callers must hold whatever spinlock or state-word
// bit the owning primitive uses to protect its queue before calling any
// Queue method. This mirrors nsync.Mu and nsync.CV, which manipulate
// mu.waiters/cv.waiters directly under their own spinlock bit rather than
// through a separately locked type.
type Queue struct {
	head dll
	init bool
}

func (q *Queue) lazyInit() {
	if !q.init {
		q.head.makeEmpty()
		q.init = true
	}
}

// Empty reports whether the queue has no enqueued Waiters.
func (q *Queue) Empty() bool {
	q.lazyInit()
	return q.head.isEmpty()
}

// Len returns the number of Waiters currently enqueued. It walks the list,
// same cost as DrainAll; callers that need this on every push/pop should
// track their own counter instead.
func (q *Queue) Len() int {
	q.lazyInit()
	n := 0
	for p := q.head.next; p != &q.head; p = p.next {
		n++
	}
	return n
}

// PushBack enqueues w at the tail of the queue.
func (q *Queue) PushBack(w *Waiter) {
	q.lazyInit()
	w.link.insertAfter(q.head.prev)
}

// PopFront dequeues and returns the Waiter at the head of the queue, or nil
// if the queue is empty.
func (q *Queue) PopFront() *Waiter {
	q.lazyInit()
	if q.head.isEmpty() {
		return nil
	}
	w := q.head.next.elem
	w.link.remove()
	return w
}

// Remove removes w from the queue. Requires that w is currently enqueued on
// q; it is a caller bug to call Remove for a Waiter not on this Queue, use
// Contains to check first if unsure.
func (q *Queue) Remove(w *Waiter) {
	w.link.remove()
}

// Contains reports whether w is currently linked into this queue.
func (q *Queue) Contains(w *Waiter) bool {
	q.lazyInit()
	return w.link.isInList(&q.head)
}

// DrainAll detaches every Waiter currently enqueued and returns them in
// FIFO order, leaving the queue empty. This is the "cohort promotion"
// primitive used by AsyncReadWriteLock's reader release and
// AsyncSwitchLock's side promotion, and by AsyncCounter's batch peeker
// release.
func (q *Queue) DrainAll() []*Waiter {
	q.lazyInit()
	var out []*Waiter
	for w := q.PopFront(); w != nil; w = q.PopFront() {
		out = append(out, w)
	}
	return out
}
