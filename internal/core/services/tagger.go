package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// Ensure AutoTagger implements the interface.
var _ driving.AutoTagger = (*AutoTagger)(nil)

// AutoTagger periodically classifies bookmarks that carry no tags yet.
// With a change notifier it also runs as soon as the store changes.
type AutoTagger struct {
	settings  domain.AutoTagSettings
	bookmarks driven.BookmarkStore
	classify  driving.ClassificationService
	notifier  driven.ChangeNotifier

	// attempted and settled are guarded by mu.
	attempted map[int64]bool
	settled   map[int64]bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewAutoTagger creates an auto tagger.
func NewAutoTagger(
	settings domain.AutoTagSettings,
	bookmarks driven.BookmarkStore,
	classify driving.ClassificationService,
) *AutoTagger {
	return &AutoTagger{
		settings:  settings,
		bookmarks: bookmarks,
		classify:  classify,
		attempted: make(map[int64]bool),
		settled:   make(map[int64]bool),
	}
}

// WithNotifier makes the loop also run when notifier reports a change.
func (t *AutoTagger) WithNotifier(notifier driven.ChangeNotifier) *AutoTagger {
	t.notifier = notifier
	return t
}

// Start runs the tagging loop. It blocks until Stop is called or ctx ends.
func (t *AutoTagger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = true
	t.stopCh = make(chan struct{})
	stopCh := t.stopCh
	t.mu.Unlock()

	t.wg.Add(1)
	defer t.wg.Done()

	// A nil channel never fires, so without a notifier only the ticker runs.
	var changes <-chan struct{}
	if t.notifier != nil {
		ch, err := t.notifier.Watch(ctx)
		if err != nil {
			logger.Warn("auto tag: watching for changes: %v", err)
		} else {
			changes = ch
		}
	}

	// Tag whatever is pending immediately on startup.
	t.RunOnce(ctx)

	ticker := time.NewTicker(t.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			t.RunOnce(ctx)
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			logger.Debug("auto tag: store changed")
			t.run(ctx, true)
		}
	}
}

// Stop shuts the loop down and waits for the current round to finish.
func (t *AutoTagger) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	close(t.stopCh)
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}

// RunOnce classifies one batch of untagged bookmarks and returns how many
// passes succeeded.
func (t *AutoTagger) RunOnce(ctx context.Context) int {
	return t.run(ctx, false)
}

// run tags pending bookmarks. Bookmarks whose pass found nothing to tag
// with every tier available are never retried. When onlyNew is set,
// bookmarks this tagger already tried are skipped too, so the tagger's
// own writes cannot retrigger it.
func (t *AutoTagger) run(ctx context.Context, onlyNew bool) int {
	pending, err := t.bookmarks.ListBookmarks(ctx, domain.BookmarkFilter{
		Unclassified: true,
		Limit:        t.settings.BatchSize,
	})
	if err != nil {
		logger.Error("auto tag: listing untagged bookmarks: %v", err)
		return 0
	}

	t.mu.Lock()
	ids := make([]int64, 0, len(pending))
	for i := range pending {
		id := pending[i].ID
		if t.settled[id] || (onlyNew && t.attempted[id]) {
			continue
		}
		t.attempted[id] = true
		ids = append(ids, id)
	}
	t.mu.Unlock()
	if len(ids) == 0 {
		return 0
	}
	logger.Info("Auto tagging %d bookmarks", len(ids))

	var done int
	for _, outcome := range t.classify.ClassifyBatch(ctx, ids, domain.ClassifyOptions{}) {
		if outcome.Err != nil {
			logger.Warn("auto tag: bookmark %d: %v", outcome.BookmarkID, outcome.Err)
			continue
		}
		if r := outcome.Result; r != nil && r.Unclassified && len(r.Degraded) == 0 {
			t.mu.Lock()
			t.settled[outcome.BookmarkID] = true
			t.mu.Unlock()
		}
		done++
	}
	return done
}
