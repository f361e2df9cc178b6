package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// minTextCandidates is the smallest candidate pool requested from the text
// index, so that pagination ranks over more than a single page.
const minTextCandidates = domain.MaxSearchLimit

// signalSet holds the per-bookmark scores one signal produced.
type signalSet struct {
	scores map[int64]float64
	err    error
}

func (s signalSet) ok() bool { return s.err == nil }

// SearchService resolves queries that combine full-text, tag and semantic
// signals into one ranked list.
type SearchService struct {
	bookmarks driven.BookmarkStore
	tags      driven.TagStore
	textIndex driven.TextIndex
	indexer   *Indexer
	weights   domain.SignalWeights
	topN      int
}

// NewSearchService creates a new search service.
// The textIndex and indexer parameters are optional (can be nil); queries
// needing them then degrade to the remaining signals.
func NewSearchService(
	bookmarks driven.BookmarkStore,
	tags driven.TagStore,
	textIndex driven.TextIndex,
	indexer *Indexer,
	cfg domain.EngineConfig,
) *SearchService {
	topN := cfg.SemanticTopN
	if topN <= 0 {
		topN = domain.DefaultSemanticTopN
	}
	return &SearchService{
		bookmarks: bookmarks,
		tags:      tags,
		textIndex: textIndex,
		indexer:   indexer,
		weights:   cfg.SearchSignalWeights,
		topN:      topN,
	}
}

// Search resolves q. An empty query lists bookmarks by recency.
func (s *SearchService) Search(ctx context.Context, q domain.Query) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: text=%q tags=%v semantic=%q", q.Text, q.Tags, q.Semantic)

	if err := q.Validate(); err != nil {
		return nil, err
	}

	limit := q.EffectiveLimit()
	logger.Debug("Limit: %d, Offset: %d", limit, q.Offset)

	if q.IsEmpty() {
		logger.Debug("Empty query, listing by recency")
		return s.recent(ctx, q, limit)
	}

	// The filter goes into every candidate fetch so the text and semantic
	// caps count only bookmarks that can be returned.
	filter := q.Filter()

	// Run the requested signals in parallel.
	var text, tags, semantic signalSet
	var wg sync.WaitGroup

	if q.HasText() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text = s.textSignal(ctx, q.Text, filter, max(minTextCandidates, q.Offset+limit))
		}()
	}
	if q.HasTags() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tags = s.tagSignal(ctx, q.NormalizedTags(), q.MinTagConfidence)
		}()
	}
	if q.HasSemantic() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semantic = s.semanticSignal(ctx, q.Semantic, filter)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A failed tag lookup cannot be degraded: dropping the filter would
	// return bookmarks the caller excluded.
	if q.HasTags() && !tags.ok() {
		return nil, fmt.Errorf("search: %w", tags.err)
	}

	useText := q.HasText() && text.ok()
	useSemantic := q.HasSemantic() && semantic.ok()
	if q.HasText() && !useText {
		logger.Warn("Text signal failed: %v", text.err)
	}
	if q.HasSemantic() && !useSemantic {
		logger.Warn("Semantic signal failed: %v", semantic.err)
	}
	if !useText && !useSemantic && !q.HasTags() {
		return nil, fmt.Errorf("search: all signals failed: %w", errors.Join(text.err, semantic.err))
	}

	candidates := s.candidates(q, text, tags, semantic, useText, useSemantic)
	logger.Debug("Candidates: %d", len(candidates))

	weights := s.normalizedWeights(useText, q.HasTags(), useSemantic)
	logger.Debug("Weights: text=%.2f tag=%.2f semantic=%.2f", weights.Text, weights.Tag, weights.Semantic)

	results, err := s.hydrate(ctx, candidates, filter, func(id int64) domain.SignalScores {
		return domain.SignalScores{
			Text:     text.scores[id],
			Tag:      tags.scores[id],
			Semantic: semantic.scores[id],
		}
	}, weights)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	sortResults(results)

	results = applyPagination(results, q.Offset, limit)
	logger.Info("Final results: %d", len(results))

	return results, nil
}

// recent lists bookmarks newest first for a query with no signals.
func (s *SearchService) recent(ctx context.Context, q domain.Query, limit int) ([]domain.SearchResult, error) {
	filter := q.Filter()
	filter.Offset = q.Offset
	filter.Limit = limit

	bookmarks, err := s.bookmarks.ListBookmarks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	results := make([]domain.SearchResult, len(bookmarks))
	for i := range bookmarks {
		results[i] = domain.SearchResult{Bookmark: bookmarks[i]}
	}
	return results, nil
}

// textSignal scores text matches, normalised so the best hit scores 1.
func (s *SearchService) textSignal(
	ctx context.Context,
	query string,
	filter domain.BookmarkFilter,
	limit int,
) signalSet {
	if s.textIndex == nil {
		return signalSet{err: errors.New("text index unavailable")}
	}

	hits, err := s.textIndex.TextSearch(ctx, query, filter, limit)
	if err != nil {
		return signalSet{err: fmt.Errorf("text search: %w", err)}
	}
	logger.Debug("Text search: %d hits", len(hits))

	var best float64
	for _, h := range hits {
		best = max(best, h.Score)
	}

	scores := make(map[int64]float64, len(hits))
	for _, h := range hits {
		score := 1.0
		if best > 0 {
			score = max(0, h.Score/best)
		}
		scores[h.BookmarkID] = score
	}
	return signalSet{scores: scores}
}

// tagSignal returns the bookmarks carrying every tag in names. A bookmark's
// tag score is the mean confidence of its matching assignments.
func (s *SearchService) tagSignal(ctx context.Context, names []string, minConfidence float64) signalSet {
	matches, err := s.tags.BookmarksWithTags(ctx, names, minConfidence)
	if err != nil {
		return signalSet{err: fmt.Errorf("tag lookup: %w", err)}
	}
	logger.Debug("Tag filter %v: %d bookmarks", names, len(matches))

	scores := make(map[int64]float64, len(matches))
	for id, confidences := range matches {
		if len(confidences) < len(names) {
			continue
		}
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		scores[id] = sum / float64(len(confidences))
	}
	return signalSet{scores: scores}
}

// semanticSignal embeds the query and scores the nearest bookmarks passing
// filter by cosine similarity.
func (s *SearchService) semanticSignal(ctx context.Context, query string, filter domain.BookmarkFilter) signalSet {
	if s.indexer == nil {
		return signalSet{err: domain.ErrEmbeddingUnavailable}
	}

	vec, err := s.indexer.Embed(ctx, query)
	if err != nil {
		return signalSet{err: fmt.Errorf("query embedding: %w", err)}
	}

	keep, err := s.scope(ctx, filter)
	if err != nil {
		return signalSet{err: fmt.Errorf("semantic scope: %w", err)}
	}

	neighbors, err := s.indexer.Nearest(ctx, vec, s.topN, keep)
	if err != nil {
		return signalSet{err: fmt.Errorf("nearest neighbours: %w", err)}
	}
	logger.Debug("Semantic search: %d neighbours", len(neighbors))

	scores := make(map[int64]float64, len(neighbors))
	for _, n := range neighbors {
		scores[n.BookmarkID] = n.Similarity()
	}
	return signalSet{scores: scores}
}

// scope returns a predicate admitting the bookmarks that pass filter, or nil
// when the filter admits everything.
func (s *SearchService) scope(ctx context.Context, filter domain.BookmarkFilter) (func(int64) bool, error) {
	if !filter.Restricts() {
		return nil, nil
	}
	filter.Offset, filter.Limit = 0, 0
	bookmarks, err := s.bookmarks.ListBookmarks(ctx, filter)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]bool, len(bookmarks))
	for i := range bookmarks {
		allowed[bookmarks[i].ID] = true
	}
	logger.Debug("Filter admits %d bookmarks", len(allowed))
	return func(id int64) bool { return allowed[id] }, nil
}

// candidates builds the candidate set. Text and semantic matches form a
// union; tags narrow it. With no usable text or semantic signal the tag
// matches are the candidates.
func (s *SearchService) candidates(
	q domain.Query,
	text, tags, semantic signalSet,
	useText, useSemantic bool,
) []int64 {
	pool := make(map[int64]bool)
	if useText {
		for id := range text.scores {
			pool[id] = true
		}
	}
	if useSemantic {
		for id := range semantic.scores {
			pool[id] = true
		}
	}

	if q.HasTags() {
		if !useText && !useSemantic {
			pool = make(map[int64]bool, len(tags.scores))
			for id := range tags.scores {
				pool[id] = true
			}
		} else {
			for id := range pool {
				if _, ok := tags.scores[id]; !ok {
					delete(pool, id)
				}
			}
		}
	}

	ids := make([]int64, 0, len(pool))
	for id := range pool {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// normalizedWeights rescales the configured weights over the signals in
// use. If every weight in use is zero the signals count equally.
func (s *SearchService) normalizedWeights(text, tag, semantic bool) domain.SignalWeights {
	var w domain.SignalWeights
	if text {
		w.Text = s.weights.Text
	}
	if tag {
		w.Tag = s.weights.Tag
	}
	if semantic {
		w.Semantic = s.weights.Semantic
	}

	sum := w.Text + w.Tag + w.Semantic
	if sum <= 0 {
		w = domain.SignalWeights{}
		if text {
			w.Text = 1
		}
		if tag {
			w.Tag = 1
		}
		if semantic {
			w.Semantic = 1
		}
		sum = w.Text + w.Tag + w.Semantic
	}
	if sum == 0 {
		return w
	}
	return domain.SignalWeights{Text: w.Text / sum, Tag: w.Tag / sum, Semantic: w.Semantic / sum}
}

// hydrate loads the candidates and scores those passing the filter.
// Candidates whose bookmark has been deleted are dropped.
func (s *SearchService) hydrate(
	ctx context.Context,
	ids []int64,
	filter domain.BookmarkFilter,
	signals func(int64) domain.SignalScores,
	w domain.SignalWeights,
) ([]domain.SearchResult, error) {
	if len(ids) == 0 {
		return []domain.SearchResult{}, nil
	}

	bookmarks, err := s.bookmarks.GetBookmarks(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(ids))
	for _, id := range ids {
		b, ok := bookmarks[id]
		if !ok || !filter.Matches(&b) {
			continue
		}
		sig := signals(id)
		results = append(results, domain.SearchResult{
			Bookmark: b,
			Score:    w.Text*sig.Text + w.Tag*sig.Tag + w.Semantic*sig.Semantic,
			Signals:  sig,
		})
	}
	return results, nil
}

// sortResults orders by score descending, then newer bookmarks, then lower
// ID, so equal inputs always rank identically.
func sortResults(results []domain.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Bookmark.DateAdded.Equal(b.Bookmark.DateAdded) {
			return a.Bookmark.DateAdded.After(b.Bookmark.DateAdded)
		}
		return a.Bookmark.ID < b.Bookmark.ID
	})
}

// applyPagination applies offset and limit to results.
func applyPagination(results []domain.SearchResult, offset, limit int) []domain.SearchResult {
	if offset >= len(results) {
		return []domain.SearchResult{}
	}

	end := offset + limit
	if end > len(results) {
		end = len(results)
	}

	return results[offset:end]
}
