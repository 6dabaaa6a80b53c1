// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package waiter

import (
	"runtime"
	"sync/atomic"
)

// SpinDelay is used in CAS retry loops to back off before the next attempt.
// Usage:
//
//	var attempts uint
//	for !tryCAS() {
//		attempts = SpinDelay(attempts)
//	}
func SpinDelay(attempts uint) uint {
	if attempts < 7 {
		for i := 0; i != 1<<attempts; i++ {
		}
		attempts++
	} else {
		runtime.Gosched()
	}
	return attempts
}

// spinTestAndSet spins until (*w & test) == 0, then atomically performs
// *w |= set and returns the previous value of *w. It is used to implement the
// short-lived spinlocks guarding each primitive's waiter queue, exactly as
// nsync's Mu and CV do for their own waiter queues.
func spinTestAndSet(w *uint32, test uint32, set uint32) uint32 {
	var attempts uint
	old := atomic.LoadUint32(w)
	for (old&test) != 0 || !atomic.CompareAndSwapUint32(w, old, old|set) {
		attempts = SpinDelay(attempts)
		old = atomic.LoadUint32(w)
	}
	return old
}

// SpinLock is a minimal spinlock built from the same primitives as nsync's
// inline mu/cv spinlock bit, factored out so every primitive in this module
// shares one implementation instead of repeating the CAS loop.
type SpinLock struct {
	word uint32
}

// Lock spins until the lock is acquired.
func (s *SpinLock) Lock() {
	spinTestAndSet(&s.word, 1, 1)
}

// Unlock releases the lock. Requires the caller currently holds it.
func (s *SpinLock) Unlock() {
	atomic.StoreUint32(&s.word, 0)
}
