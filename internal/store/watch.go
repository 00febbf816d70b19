package store

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"techlore/internal/logging"
)

// selfWriteGrace is how long after our own persist the watcher ignores
// events for the document. The rename lands well inside this window.
const selfWriteGrace = 500 * time.Millisecond

// startWatcher watches the document's directory (not the file itself, so
// the atomic rename is observed) and marks the cache stale when another
// process edits the file.
func (s *Store) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = w
	s.watchDone = make(chan struct{})
	go s.watchLoop()

	logging.Watch("Watching %s for out-of-band changes", s.path)
	return nil
}

func (s *Store) watchLoop() {
	defer close(s.watchDone)

	relevant := fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&relevant == 0 {
				continue
			}
			if time.Now().UnixNano() < s.ignoreUntil.Load() {
				logging.WatchDebug("Ignoring self-write event: %s", ev.Op)
				continue
			}
			logging.Watch("Document changed out-of-band (%s), cache marked stale", ev.Op)
			s.stale.Store(true)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Warn("Watcher error: %v", err)
		}
	}
}

// markSelfWrite opens the grace window before a persist so the watcher does
// not flag our own rename as an external change.
func (s *Store) markSelfWrite() {
	if s.watcher == nil {
		return
	}
	s.ignoreUntil.Store(time.Now().Add(selfWriteGrace).UnixNano())
}
