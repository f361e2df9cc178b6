// Package storewatch notices writes to the SQLite database made by other
// processes, such as the MCP server capturing a bookmark while the auto
// tagger runs in a separate terminal.
package storewatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.ChangeNotifier = (*Watcher)(nil)

// DefaultDebounce groups the writes of one transaction into a single change.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to a database file and its WAL.
type Watcher struct {
	dir      string
	names    map[string]bool
	debounce time.Duration

	mu sync.Mutex
	fw *fsnotify.Watcher
}

// New creates a watcher for the database at dbPath. The directory is
// watched rather than the file so that WAL files created later are seen.
func New(dbPath string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	base := filepath.Base(dbPath)
	return &Watcher{
		dir:      filepath.Dir(dbPath),
		names:    map[string]bool{base: true, base + "-wal": true},
		debounce: debounce,
	}
}

// Watch starts watching. The returned channel has a buffer of one, so a
// slow reader sees at most one pending change.
func (w *Watcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.mu.Lock()
	if w.fw != nil {
		w.fw.Close()
	}
	w.fw = fw
	w.mu.Unlock()

	out := make(chan struct{}, 1)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- struct{}) {
	defer close(out)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.closeWatcher(fw)
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("store watch: %v", err)
		case <-timer.C:
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}

// relevant reports whether ev is a write to the database or its WAL.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.names[filepath.Base(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func (w *Watcher) closeWatcher(fw *fsnotify.Watcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fw.Close()
	if w.fw == fw {
		w.fw = nil
	}
}

// Close stops the current watch.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw == nil {
		return nil
	}
	err := w.fw.Close()
	w.fw = nil
	return err
}
