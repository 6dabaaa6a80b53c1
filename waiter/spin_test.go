// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package waiter

import (
	"sync"
	"testing"
)

func TestSpinLockExcludesConcurrentCriticalSections(t *testing.T) {
	var lock SpinLock
	var counter int
	var wg sync.WaitGroup
	const goroutines, perGoroutine = 20, 200
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				lock.Lock()
				counter++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()
	if want := goroutines * perGoroutine; counter != want {
		t.Fatalf("counter = %d, want %d", counter, want)
	}
}
