// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// EXTERNAL MODIFICATION WATCHER
// =============================================================================

// Watcher detects modifications of the database file made by another
// process. The engine writes through the SQLiteStore only, so any change
// observed while no store write is in flight came from outside and is
// reported through the callback so it can be logged as a tamper signal.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func()

	mu        sync.Mutex
	lastOwn   time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewWatcher creates a watcher for the database file at path.
// onChange is invoked (debounced) for every external modification.
func NewWatcher(path string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		watcher:  fsw,
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}
	return w, nil
}

// Watch starts watching. It watches the containing directory because
// editors and SQLite itself replace or append to files in ways that
// drop a watch on the file inode.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents()
	return nil
}

// MarkOwnWrite records that the engine itself is writing. Events that
// arrive within the debounce window after an own write are not reported.
func (w *Watcher) MarkOwnWrite() {
	w.mu.Lock()
	w.lastOwn = time.Now()
	w.mu.Unlock()
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		err = w.watcher.Close()
	})
	return err
}

// processEvents filters events down to external changes of the database
// file and fires the callback at most once per debounce window.
func (w *Watcher) processEvents() {
	defer func() {
		if r := recover(); r != nil {
			_ = r
		}
	}()

	var lastFired time.Time

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			now := time.Now()

			w.mu.Lock()
			own := now.Sub(w.lastOwn) < w.debounce
			w.mu.Unlock()
			if own {
				continue
			}

			if now.Sub(lastFired) < w.debounce {
				continue
			}
			lastFired = now

			if w.onChange != nil {
				w.onChange()
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; keep processing.
		}
	}
}
