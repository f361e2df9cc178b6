package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tagmark/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tagmark/internal/core/domain"
)

func setupSearch(t *testing.T, store *memory.Store, indexer *Indexer) *SearchService {
	t.Helper()
	return NewSearchService(store.BookmarkStore(), store.TagStore(), store.TextIndex(), indexer, testConfig())
}

func tagBookmark(t *testing.T, store *memory.Store, id int64, name string, confidence float64) {
	t.Helper()
	ctx := context.Background()
	tagID, err := store.TagStore().UpsertTag(ctx, name, "Tech")
	require.NoError(t, err)
	require.NoError(t, store.TagStore().UpsertAssignment(ctx, id, tagID, confidence, true))
}

func resultIDs(results []domain.SearchResult) []int64 {
	ids := make([]int64, len(results))
	for i := range results {
		ids[i] = results[i].Bookmark.ID
	}
	return ids
}

func TestSearchService_Search_TextOnly(t *testing.T) {
	store := setupStore(t)
	match := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/a", Title: "Asyncio patterns"})
	saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/b", Title: "Sourdough starter"})
	svc := setupSearch(t, store, nil)

	results, err := svc.Search(context.Background(), domain.Query{Text: "asyncio"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, match.ID, results[0].Bookmark.ID)
	assert.InDelta(t, 1, results[0].Signals.Text, 1e-9)
	assert.InDelta(t, 1, results[0].Score, 1e-9)
}

func TestSearchService_Search_EmptyQueryByRecency(t *testing.T) {
	store := setupStore(t)
	t1 := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/1", Title: "One", DateAdded: testNow.Add(-2 * time.Hour)})
	t2 := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/2", Title: "Two", DateAdded: testNow.Add(-time.Hour)})
	t3 := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/3", Title: "Three", DateAdded: testNow})
	svc := setupSearch(t, store, nil)

	results, err := svc.Search(context.Background(), domain.Query{})

	require.NoError(t, err)
	assert.Equal(t, []int64{t3.ID, t2.ID, t1.ID}, resultIDs(results))
}

func TestSearchService_Search_TagsAreConjunctive(t *testing.T) {
	store := setupStore(t)
	both := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/a", Title: "A"})
	one := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/b", Title: "B"})
	weak := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/c", Title: "C"})
	tagBookmark(t, store, both.ID, "python", 0.9)
	tagBookmark(t, store, both.ID, "tutorial", 0.7)
	tagBookmark(t, store, one.ID, "python", 1)
	tagBookmark(t, store, weak.ID, "python", 0.4)
	tagBookmark(t, store, weak.ID, "tutorial", 0.4)
	svc := setupSearch(t, store, nil)
	ctx := context.Background()

	results, err := svc.Search(ctx, domain.Query{Tags: []string{"Python", "tutorial"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{both.ID, weak.ID}, resultIDs(results))
	assert.InDelta(t, 0.8, results[0].Signals.Tag, 1e-9)

	results, err = svc.Search(ctx, domain.Query{Tags: []string{"python", "tutorial"}, MinTagConfidence: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []int64{both.ID}, resultIDs(results))
}

func TestSearchService_Search_TagsNarrowText(t *testing.T) {
	store := setupStore(t)
	tagged := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/a", Title: "Asyncio intro"})
	saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/b", Title: "Asyncio deep dive"})
	other := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/c", Title: "Gardening"})
	tagBookmark(t, store, tagged.ID, "python", 0.9)
	tagBookmark(t, store, other.ID, "python", 0.9)
	svc := setupSearch(t, store, nil)

	results, err := svc.Search(context.Background(), domain.Query{Text: "asyncio", Tags: []string{"python"}})

	require.NoError(t, err)
	assert.Equal(t, []int64{tagged.ID}, resultIDs(results))
	assert.InDelta(t, (1.0+0.9)/2, results[0].Score, 1e-9)
}

func TestSearchService_Search_SemanticOnly(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	indexer := NewIndexer(newMockEmbedder("v1"), store.EmbeddingStore(), nil, "v1")
	titles := []string{"python asyncio", "cooking garden", "python"}
	ids := make([]int64, len(titles))
	for i, title := range titles {
		ids[i] = saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/" + title, Title: title}).ID
		_, err := indexer.Index(ctx, ids[i], title, false)
		require.NoError(t, err)
	}
	svc := setupSearch(t, store, indexer)

	results, err := svc.Search(ctx, domain.Query{Semantic: "asyncio with python"})

	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0], ids[2], ids[1]}, resultIDs(results))
	assert.InDelta(t, 1, results[0].Signals.Semantic, 1e-6)
	assert.InDelta(t, 0.5, results[2].Signals.Semantic, 1e-6)
}

func TestSearchService_Search_OldEmbeddingVersionOnlyViaText(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	b := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/a", Title: "python"})
	v1 := NewIndexer(newMockEmbedder("v1"), store.EmbeddingStore(), nil, "v1")
	_, err := v1.Index(ctx, b.ID, "python", false)
	require.NoError(t, err)

	v2 := NewIndexer(newMockEmbedder("v2"), store.EmbeddingStore(), nil, "v2")
	svc := setupSearch(t, store, v2)

	results, err := svc.Search(ctx, domain.Query{Semantic: "python"})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.Search(ctx, domain.Query{Text: "python", Semantic: "python"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Signals.Semantic)
	assert.InDelta(t, 0.5, results[0].Score, 1e-9)
}

func TestSearchService_Search_SemanticFailureDegradesToText(t *testing.T) {
	store := setupStore(t)
	b := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/a", Title: "python"})
	embedder := newMockEmbedder("v1")
	embedder.embedErr = domain.ErrEmbeddingUnavailable
	svc := setupSearch(t, store, NewIndexer(embedder, store.EmbeddingStore(), nil, "v1"))

	results, err := svc.Search(context.Background(), domain.Query{Text: "python", Semantic: "python"})

	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, resultIDs(results))
	assert.InDelta(t, 1, results[0].Score, 1e-9)
}

func TestSearchService_Search_AllSignalsFail(t *testing.T) {
	store := setupStore(t)
	svc := NewSearchService(store.BookmarkStore(), store.TagStore(), nil, nil, testConfig())

	_, err := svc.Search(context.Background(), domain.Query{Text: "python", Semantic: "python"})

	assert.Error(t, err)
}

func TestSearchService_Search_InvalidQuery(t *testing.T) {
	svc := setupSearch(t, setupStore(t), nil)

	for name, q := range map[string]domain.Query{
		"negative limit":       {Text: "x", Limit: -1},
		"negative offset":      {Text: "x", Offset: -1},
		"limit too large":      {Text: "x", Limit: domain.MaxSearchLimit + 1},
		"confidence no tags":   {Text: "x", MinTagConfidence: 0.5},
		"confidence too large": {Tags: []string{"x"}, MinTagConfidence: 1.5},
		"inverted dates":       {Text: "x", From: testNow, To: testNow.Add(-time.Hour)},
		"blank tag":            {Tags: []string{"  "}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), q)
			assert.ErrorIs(t, err, domain.ErrInvalidQuery)
		})
	}
}

func TestSearchService_Search_FiltersAndTieBreaks(t *testing.T) {
	store := setupStore(t)
	older := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/a", Title: "python", Source: "firefox", DateAdded: testNow.Add(-time.Hour)})
	newer := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/b", Title: "python", Source: "firefox", DateAdded: testNow})
	sameTime := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/c", Title: "python", Source: "chrome", DateAdded: testNow})
	svc := setupSearch(t, store, nil)
	ctx := context.Background()

	results, err := svc.Search(ctx, domain.Query{Text: "python"})
	require.NoError(t, err)
	assert.Equal(t, []int64{newer.ID, sameTime.ID, older.ID}, resultIDs(results))

	results, err = svc.Search(ctx, domain.Query{Text: "python", Source: "firefox"})
	require.NoError(t, err)
	assert.Equal(t, []int64{newer.ID, older.ID}, resultIDs(results))

	results, err = svc.Search(ctx, domain.Query{Text: "python", To: testNow.Add(-time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []int64{older.ID}, resultIDs(results))

	results, err = svc.Search(ctx, domain.Query{Text: "python", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{sameTime.ID}, resultIDs(results))

	results, err = svc.Search(ctx, domain.Query{Text: "python", Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchService_normalizedWeights(t *testing.T) {
	cfg := testConfig()
	cfg.SearchSignalWeights = domain.SignalWeights{Text: 3, Tag: 1, Semantic: 0}
	store := setupStore(t)
	svc := NewSearchService(store.BookmarkStore(), store.TagStore(), store.TextIndex(), nil, cfg)

	w := svc.normalizedWeights(true, true, false)
	assert.InDelta(t, 0.75, w.Text, 1e-9)
	assert.InDelta(t, 0.25, w.Tag, 1e-9)

	w = svc.normalizedWeights(false, false, true)
	assert.InDelta(t, 1, w.Semantic, 1e-9, "zero weights fall back to equal shares")
}

func TestSearchService_applyPagination(t *testing.T) {
	results := make([]domain.SearchResult, 5)

	assert.Len(t, applyPagination(results, 0, 2), 2)
	assert.Len(t, applyPagination(results, 4, 2), 1)
	assert.Empty(t, applyPagination(results, 5, 2))
}

func TestSearchService_Search_FilterAppliesBeforeSemanticTopN(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	indexer := NewIndexer(newMockEmbedder("v1"), store.EmbeddingStore(), nil, "v1")
	older := saveBookmark(t, store, domain.Bookmark{
		URL: "https://example.com/old", Title: "python cooking", DateAdded: testNow.Add(-2 * time.Hour),
	})
	_, err := indexer.Index(ctx, older.ID, older.Title, false)
	require.NoError(t, err)
	for _, u := range []string{"https://example.com/a", "https://example.com/b"} {
		b := saveBookmark(t, store, domain.Bookmark{URL: u, Title: "python asyncio"})
		_, err := indexer.Index(ctx, b.ID, b.Title, false)
		require.NoError(t, err)
	}
	cfg := testConfig()
	cfg.SemanticTopN = 2
	svc := NewSearchService(store.BookmarkStore(), store.TagStore(), store.TextIndex(), indexer, cfg)

	results, err := svc.Search(ctx, domain.Query{Semantic: "python asyncio", To: testNow.Add(-time.Hour)})

	require.NoError(t, err)
	assert.Equal(t, []int64{older.ID}, resultIDs(results))

	results, err = svc.Search(ctx, domain.Query{Semantic: "python asyncio"})
	require.NoError(t, err)
	assert.Len(t, results, 2, "without a filter the top-N cap still holds")
}

func TestSearchService_Search_SourceFilterScopesText(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	for i := range 3 {
		saveBookmark(t, store, domain.Bookmark{
			URL: "https://example.com/" + string(rune('a'+i)), Title: "python python", Source: "chrome",
		})
	}
	wanted := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/z", Title: "python", Source: "firefox"})

	hits, err := store.TextIndex().TextSearch(ctx, "python", domain.BookmarkFilter{Source: "firefox"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, wanted.ID, hits[0].BookmarkID)

	svc := setupSearch(t, store, nil)
	results, err := svc.Search(ctx, domain.Query{Text: "python", Source: "firefox"})
	require.NoError(t, err)
	assert.Equal(t, []int64{wanted.ID}, resultIDs(results))
}

func TestSearchService_Search_IsDeterministic(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	indexer := NewIndexer(newMockEmbedder("v1"), store.EmbeddingStore(), nil, "v1")
	titles := []string{"python asyncio", "python", "python garden", "asyncio", "python asyncio"}
	for i, title := range titles {
		b := saveBookmark(t, store, domain.Bookmark{
			URL:       "https://example.com/" + string(rune('a'+i)),
			Title:     title,
			DateAdded: testNow.Add(-time.Duration(i%2) * time.Hour),
		})
		_, err := indexer.Index(ctx, b.ID, title, false)
		require.NoError(t, err)
		tagBookmark(t, store, b.ID, "python", 0.8)
	}
	svc := setupSearch(t, store, indexer)
	q := domain.Query{Text: "python", Tags: []string{"python"}, Semantic: "python asyncio"}

	first, err := svc.Search(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, len(titles))

	for range 5 {
		again, err := svc.Search(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
