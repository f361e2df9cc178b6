package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// Indexer maintains one embedding per bookmark for the active model version
// and answers nearest-neighbour queries over them.
type Indexer struct {
	embedder driven.EmbeddingService
	store    driven.EmbeddingStore
	splitter driven.TextSplitter
	version  string
	now      func() time.Time
}

// NewIndexer creates an indexer writing vectors tagged with version.
// The embedder and splitter are optional. Without an embedder every
// operation that needs vectors fails with domain.ErrEmbeddingUnavailable.
func NewIndexer(
	embedder driven.EmbeddingService,
	store driven.EmbeddingStore,
	splitter driven.TextSplitter,
	version string,
) *Indexer {
	if embedder != nil && embedder.ModelName() != version {
		logger.Warn("Embedding model %q differs from active version %q", embedder.ModelName(), version)
	}
	return &Indexer{
		embedder: embedder,
		store:    store,
		splitter: splitter,
		version:  version,
		now:      time.Now,
	}
}

// Version returns the active embedding model version.
func (x *Indexer) Version() string {
	return x.version
}

// Available reports whether vectors can be produced and stored.
func (x *Indexer) Available() bool {
	return x.embedder != nil && x.store != nil
}

// Embed produces one vector for text. Text longer than one chunk is split
// and the chunk vectors are mean-pooled.
func (x *Indexer) Embed(ctx context.Context, text string) ([]float32, error) {
	if x.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	chunks := []string{text}
	if x.splitter != nil {
		chunks = x.splitter.Split(text)
	}
	pieces := chunks[:0:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			pieces = append(pieces, c)
		}
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: nothing to embed", domain.ErrContentUnavailable)
	}

	if len(pieces) == 1 {
		vec, err := x.embedder.Embed(ctx, pieces[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty vector", domain.ErrEmbeddingUnavailable)
		}
		return vec, nil
	}

	vectors, err := x.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	pooled := domain.MeanPool(vectors)
	if pooled == nil {
		return nil, fmt.Errorf("%w: chunk vectors disagree on dimensions", domain.ErrEmbeddingUnavailable)
	}
	logger.Debug("Pooled %d chunk vectors", len(vectors))
	return pooled, nil
}

// Index embeds text for a bookmark and stores it under the active version.
// Unchanged content already embedded by the active version is skipped
// unless force is set. The returned bool reports a skip.
func (x *Indexer) Index(ctx context.Context, bookmarkID int64, text string, force bool) (bool, error) {
	if !x.Available() {
		return false, domain.ErrEmbeddingUnavailable
	}

	hash := xxhash.Sum64String(text)
	if !force {
		existing, err := x.store.GetEmbedding(ctx, bookmarkID, x.version)
		switch {
		case err == nil && existing.ContentHash == hash && len(existing.Vector) > 0:
			logger.Debug("Bookmark %d embedding up to date", bookmarkID)
			return true, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return false, fmt.Errorf("reading embedding for bookmark %d: %w", bookmarkID, err)
		}
	}

	vec, err := x.Embed(ctx, text)
	if err != nil {
		return false, err
	}

	rec := domain.EmbeddingRecord{
		BookmarkID:   bookmarkID,
		ModelVersion: x.version,
		Vector:       vec,
		ContentHash:  hash,
		CreatedAt:    x.now().UTC(),
	}
	if err := x.store.UpsertEmbedding(ctx, rec); err != nil {
		return false, fmt.Errorf("%w: embedding for bookmark %d: %w", domain.ErrStorageWriteFailed, bookmarkID, err)
	}
	return false, nil
}

// Nearest returns the k bookmarks closest to query by cosine distance,
// ordered by distance then bookmark ID. Only vectors of the active version
// are compared. A non-nil keep restricts the bookmarks considered, before
// the k cut.
func (x *Indexer) Nearest(
	ctx context.Context,
	query []float32,
	k int,
	keep func(bookmarkID int64) bool,
) ([]domain.Neighbor, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	if x.store == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	records, err := x.store.ListEmbeddings(ctx, x.version)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}

	neighbors := make([]domain.Neighbor, 0, len(records))
	var skipped int
	for i := range records {
		rec := &records[i]
		if keep != nil && !keep(rec.BookmarkID) {
			continue
		}
		if rec.ModelVersion != x.version || len(rec.Vector) != len(query) {
			skipped++
			continue
		}
		neighbors = append(neighbors, domain.Neighbor{
			BookmarkID: rec.BookmarkID,
			Distance:   domain.CosineDistance(query, rec.Vector),
		})
	}
	if skipped > 0 {
		logger.Debug("Skipped %d vectors: %v", skipped, domain.ErrEmbeddingVersionMismatch)
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].BookmarkID < neighbors[j].BookmarkID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// VersionCounts returns how many vectors each model version has stored.
func (x *Indexer) VersionCounts(ctx context.Context) (map[string]int, error) {
	if x.store == nil {
		return map[string]int{}, nil
	}
	return x.store.CountByVersion(ctx)
}
