package state

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of filesystem events an atomic
// snapshot replace produces into a single read.
const watchDebounce = 200 * time.Millisecond

// WatchSnapshot invokes fn with a fresh snapshot each time the file at
// path is rewritten, until ctx is done. The parent directory must exist.
// Unreadable intermediate states are skipped.
func WatchSnapshot(ctx context.Context, path string, fn func(*Snapshot)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: the snapshot is replaced by
	// rename, which would orphan a watch on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(watchDebounce)
			pending = true
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			snap, err := ReadSnapshot(path)
			if err != nil {
				continue
			}
			fn(snap)
		}
	}
}
