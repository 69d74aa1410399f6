// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"
)

// =============================================================================
// BACKGROUND SWEEPER
// =============================================================================

// Sweeper runs Manager.Sweep on a fixed interval until stopped. The
// handle is owned by whoever started it; Stop is idempotent and blocks
// until the goroutine has exited.
type Sweeper struct {
	mgr      *Manager
	interval time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	swept    int
	runs     int
	lastErr  error
	lastSeen time.Time
}

// StartSweeper starts a background sweep at SweepInterval.
func (m *Manager) StartSweeper() *Sweeper {
	return m.StartSweeperEvery(SweepInterval)
}

// StartSweeperEvery starts a background sweep at a custom interval.
func (m *Manager) StartSweeperEvery(interval time.Duration) *Sweeper {
	sw := &Sweeper{
		mgr:      m,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go sw.run()
	return sw
}

// Stop terminates the sweep loop and waits for it to exit.
func (sw *Sweeper) Stop() {
	sw.stopOnce.Do(func() {
		close(sw.stop)
	})
	<-sw.done
}

// Stats returns how many sweep runs completed, how many sessions were
// removed in total, and the last sweep error if any.
func (sw *Sweeper) Stats() (runs, swept int, lastErr error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.runs, sw.swept, sw.lastErr
}

// run is the sweep loop. Store errors are recorded but never stop the
// loop; the next tick tries again.
func (sw *Sweeper) run() {
	defer close(sw.done)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.stop:
			return
		case now := <-ticker.C:
			n, err := sw.mgr.Sweep()

			sw.mu.Lock()
			sw.runs++
			sw.swept += n
			sw.lastErr = err
			sw.lastSeen = now
			sw.mu.Unlock()
		}
	}
}
