// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the disk must stay quiet before a reload.
const DefaultDebounce = 300 * time.Millisecond

// =============================================================================
// DISK WATCHER
// =============================================================================

// Watch reloads the library when the history tree changes on disk, for
// example when another instance writes a chat. It watches the root and
// every folder directory and returns once watching has started. The
// watcher stops when ctx is canceled.
func (l *Library) Watch(ctx context.Context) error {
	return l.WatchWithDebounce(ctx, DefaultDebounce)
}

// WatchWithDebounce is Watch with a custom quiet period.
func (l *Library) WatchWithDebounce(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	lw := &libraryWatcher{lib: l, watcher: w, debounce: debounce}
	if err := lw.addAll(); err != nil {
		_ = w.Close()
		return err
	}

	go lw.processEvents(ctx)
	go lw.processPending(ctx)
	return nil
}

type libraryWatcher struct {
	lib      *Library
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu         sync.Mutex
	lastChange time.Time // zero when nothing is pending
}

func (lw *libraryWatcher) addAll() error {
	root := lw.lib.store.Root
	if err := lw.watcher.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	folders, err := lw.lib.store.ListFolders()
	if err != nil {
		return err
	}
	for _, name := range folders {
		if err := lw.watcher.Add(lw.lib.store.FolderPath(name)); err != nil {
			slog.Warn("cannot watch folder", "folder", name, "error", err)
		}
	}
	return nil
}

func (lw *libraryWatcher) processEvents(ctx context.Context) {
	defer lw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			if !lw.relevant(event) {
				continue
			}

			// New folders need their own watch.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := lw.watcher.Add(event.Name); err != nil {
						slog.Warn("cannot watch new folder", "path", event.Name, "error", err)
					}
				}
			}

			lw.mu.Lock()
			lw.lastChange = time.Now()
			lw.mu.Unlock()

		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("history watcher error", "error", err)
		}
	}
}

// relevant filters out atomic-write temp files and chmod noise.
func (lw *libraryWatcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}

// processPending reloads once the tree has been quiet for the debounce
// period.
func (lw *libraryWatcher) processPending(ctx context.Context) {
	tick := lw.debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			lw.mu.Lock()
			due := !lw.lastChange.IsZero() && time.Since(lw.lastChange) >= lw.debounce
			if due {
				lw.lastChange = time.Time{}
			}
			lw.mu.Unlock()

			if due {
				if err := lw.lib.load(false); err != nil {
					slog.Warn("history reload failed", "error", err)
				}
			}
		}
	}
}
