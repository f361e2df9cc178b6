package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// Ensure Engine implements the interfaces.
var (
	_ driving.ClassificationService = (*Engine)(nil)
	_ driving.IndexService          = (*Engine)(nil)
)

// EngineDeps are the driven ports the engine orchestrates.
// Embedder, Splitter, Normaliser and Models are optional.
type EngineDeps struct {
	Bookmarks  driven.BookmarkStore
	Tags       driven.TagStore
	Embeddings driven.EmbeddingStore
	Embedder   driven.EmbeddingService
	Splitter   driven.TextSplitter
	Normaliser driven.ContentNormaliser
	Models     driven.ModelProvider
}

// Engine runs classification passes and keeps the tag and embedding stores
// in step with them.
//
// At most one pass per bookmark is in flight. A caller arriving while a
// pass for the same bookmark runs waits for it and receives its result.
// At most MaxConcurrentClassifications passes run at once.
type Engine struct {
	cfg        domain.EngineConfig
	classifier *Classifier
	indexer    *Indexer
	bookmarks  driven.BookmarkStore
	tags       driven.TagStore
	content    contentPreparer
	sem        *semaphore.Weighted
	flights    *flightRegistry
	now        func() time.Time
}

// NewEngine validates cfg and wires the engine.
func NewEngine(cfg domain.EngineConfig, deps EngineDeps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Bookmarks == nil || deps.Tags == nil {
		return nil, fmt.Errorf("%w: bookmark and tag stores required", domain.ErrInvalidConfig)
	}

	classifier, err := NewClassifier(cfg, deps.Models)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		classifier: classifier,
		indexer:    NewIndexer(deps.Embedder, deps.Embeddings, deps.Splitter, cfg.EmbeddingModelVersion),
		bookmarks:  deps.Bookmarks,
		tags:       deps.Tags,
		content:    contentPreparer{normaliser: deps.Normaliser},
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrentClassifications)),
		flights:    newFlightRegistry(),
		now:        time.Now,
	}, nil
}

// Indexer returns the engine's embedding indexer for the search service.
func (e *Engine) Indexer() *Indexer {
	return e.indexer
}

// ClassifyAndTag classifies a stored bookmark, replaces its auto-generated
// tags in one transaction and refreshes its embedding.
//
// A caller arriving while a pass for the same bookmark runs waits and
// receives that pass's result marked Shared. A deep request never accepts a
// shallow pass: it waits for it to finish and then runs its own. Confidence
// overrides are taken from the pass that ran.
//
// Once the tags are committed the pass counts as done. A failed embedding
// write is reported in EmbedError and not as an error, so callers do not
// retry a pass whose tags are already stored.
func (e *Engine) ClassifyAndTag(
	ctx context.Context,
	bookmark domain.Bookmark,
	opts domain.ClassifyOptions,
) (*domain.ClassificationResult, error) {
	if bookmark.ID <= 0 {
		return nil, fmt.Errorf("%w: bookmark id required", domain.ErrInvalidInput)
	}

	for {
		f, leader := e.flights.claim(bookmark.ID, flightClassify)
		if leader {
			return e.lead(ctx, f, bookmark, opts)
		}

		logger.Debug("Bookmark %d already in flight, waiting", bookmark.ID)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.done:
		}

		// A reindex or a cancelled pass leaves nothing to share, and a
		// shallow pass does not answer a deep request.
		if f.kind != flightClassify || isContextErr(f.err) || (opts.Deep && !f.deep) {
			continue
		}
		if f.err != nil {
			return nil, f.err
		}
		shared := *f.result
		shared.Tags = slices.Clone(f.result.Tags)
		shared.Shared = true
		return &shared, nil
	}
}

// lead runs the pass for f. The flight is released even if the pass panics;
// waiters then see errPassAborted.
func (e *Engine) lead(
	ctx context.Context,
	f *flight,
	bookmark domain.Bookmark,
	opts domain.ClassifyOptions,
) (*domain.ClassificationResult, error) {
	defer e.flights.release(bookmark.ID, f)

	f.deep = opts.Deep
	res, err := e.runPass(ctx, bookmark, opts)
	f.result, f.err = res, err
	return res, err
}

func (e *Engine) runPass(
	ctx context.Context,
	bookmark domain.Bookmark,
	opts domain.ClassifyOptions,
) (*domain.ClassificationResult, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	passID := uuid.NewString()
	logger.Section(fmt.Sprintf("Classify bookmark %d", bookmark.ID))
	logger.Debug("Pass %s: deep=%t", passID, opts.Deep)

	content := e.content.prepare(ctx, &bookmark)
	classification := &domain.Classification{}
	if content.IsEmpty() {
		logger.Warn("Bookmark %d: %v", bookmark.ID, domain.ErrContentUnavailable)
	} else {
		var err error
		classification, err = e.classifier.Classify(ctx, content, opts)
		if err != nil {
			logger.Debug("Pass %s discarded: %v", passID, err)
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, bookmark.ID, classification.Tags); err != nil {
		logger.Error("Pass %s: %v", passID, err)
		return nil, err
	}

	result := &domain.ClassificationResult{
		BookmarkID:   bookmark.ID,
		PassID:       passID,
		Tags:         classification.Tags,
		TiersRun:     classification.TiersRun,
		Degraded:     classification.Degraded,
		Unclassified: len(classification.Tags) == 0,
	}
	if result.Tags == nil {
		result.Tags = []domain.ScoredTag{}
	}

	if e.indexer.Available() && !content.IsEmpty() {
		_, err := e.indexer.Index(ctx, bookmark.ID, content.Text(), false)
		switch {
		case err == nil:
			result.Embedded = true
		case errors.Is(err, domain.ErrStorageWriteFailed):
			logger.Error("Pass %s: tags stored, embedding not: %v", passID, err)
			result.EmbedError = err.Error()
		default:
			logger.Warn("Bookmark %d not embedded: %v", bookmark.ID, err)
		}
	}

	result.CompletedAt = e.now().UTC()
	logger.Info("Pass %s: %d tags from %v", passID, len(result.Tags), result.TiersRun)
	return result, nil
}

// commit replaces the bookmark's auto-generated assignments with tags.
// User-assigned tags are never touched.
func (e *Engine) commit(ctx context.Context, bookmarkID int64, tags []domain.ScoredTag) error {
	existing, err := e.tags.GetAssignments(ctx, bookmarkID)
	if err != nil {
		return fmt.Errorf("%w: reading assignments for bookmark %d: %w", domain.ErrStorageWriteFailed, bookmarkID, err)
	}
	userTags := make(map[string]bool)
	for _, a := range existing {
		if !a.AutoGenerated {
			userTags[a.Tag.Key()] = true
		}
	}

	err = e.tags.Atomic(ctx, func(tx driven.TagTx) error {
		if err := tx.DeleteAssignments(ctx, bookmarkID, true); err != nil {
			return err
		}
		for _, t := range tags {
			if userTags[domain.TagKey(t.Name, t.Category)] {
				continue
			}
			tagID, err := tx.UpsertTag(ctx, t.Name, t.Category)
			if err != nil {
				return err
			}
			if err := tx.UpsertAssignment(ctx, bookmarkID, tagID, t.Confidence, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: tags for bookmark %d: %w", domain.ErrStorageWriteFailed, bookmarkID, err)
	}
	return nil
}

// ClassifyByID loads a bookmark and classifies it.
func (e *Engine) ClassifyByID(
	ctx context.Context,
	id int64,
	opts domain.ClassifyOptions,
) (*domain.ClassificationResult, error) {
	bookmark, err := e.bookmarks.GetBookmark(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get bookmark %d: %w", id, err)
	}
	return e.ClassifyAndTag(ctx, *bookmark, opts)
}

// ClassifyBatch classifies ids concurrently. Outcomes keep the input order
// and one failure does not stop the others.
func (e *Engine) ClassifyBatch(ctx context.Context, ids []int64, opts domain.ClassifyOptions) []domain.BatchOutcome {
	outcomes := make([]domain.BatchOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(e.cfg.MaxConcurrentClassifications)
	for i, id := range ids {
		outcomes[i].BookmarkID = id
		g.Go(func() error {
			outcomes[i].Result, outcomes[i].Err = e.ClassifyByID(ctx, id, opts)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Reindex re-embeds every bookmark under the active model version.
// Without force, bookmarks whose content is unchanged are skipped.
func (e *Engine) Reindex(ctx context.Context, force bool) (*domain.ReindexStats, error) {
	if !e.indexer.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Reindex")
	bookmarks, err := e.bookmarks.ListBookmarks(ctx, domain.BookmarkFilter{})
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	logger.Info("Reindexing %d bookmarks with %s (force=%t)", len(bookmarks), e.indexer.Version(), force)

	var embedded, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrentClassifications)
	for _, b := range bookmarks {
		g.Go(func() error {
			wasSkipped, err := e.reindexOne(gctx, b, force)
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				failed.Add(1)
				logger.Warn("Reindex bookmark %d: %v", b.ID, err)
			case wasSkipped:
				skipped.Add(1)
			default:
				embedded.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &domain.ReindexStats{
		ModelVersion: e.indexer.Version(),
		Embedded:     int(embedded.Load()),
		Skipped:      int(skipped.Load()),
		Failed:       int(failed.Load()),
	}
	logger.Info("Reindex done: %d embedded, %d skipped, %d failed", stats.Embedded, stats.Skipped, stats.Failed)
	return stats, nil
}

// reindexOne embeds one bookmark while holding its flight, so it never
// races a classification pass on the same bookmark.
func (e *Engine) reindexOne(ctx context.Context, bookmark domain.Bookmark, force bool) (bool, error) {
	for {
		f, leader := e.flights.claim(bookmark.ID, flightReindex)
		if !leader {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-f.done:
			}
			if f.kind == flightClassify && f.err == nil && f.result.Embedded && !force {
				return true, nil
			}
			continue
		}

		skipped, err := func() (bool, error) {
			defer e.flights.release(bookmark.ID, f)
			content := e.content.prepare(ctx, &bookmark)
			if content.IsEmpty() {
				return true, nil
			}
			skipped, err := e.indexer.Index(ctx, bookmark.ID, content.Text(), force)
			f.err = err
			return skipped, err
		}()
		return skipped, err
	}
}

// VersionCounts returns stored vector counts per model version.
func (e *Engine) VersionCounts(ctx context.Context) (map[string]int, error) {
	return e.indexer.VersionCounts(ctx)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
