// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coordinator

import (
	"context"
	"sync"
)

// taskTracker tracks detached background goroutines so shutdown can wait
// for in-flight work instead of killing it mid-write.
type taskTracker struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Go runs fn on a tracked goroutine. Returns false without running when the
// tracker is already closed.
func (t *taskTracker) Go(fn func()) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		fn()
	}()
	return true
}

// Drain stops accepting new tasks and waits for running ones until ctx
// expires. Returns ctx.Err() when the wait was cut short.
func (t *taskTracker) Drain(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
