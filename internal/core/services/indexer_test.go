package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// lineSplitter splits text into lines.
type lineSplitter struct{}

func (lineSplitter) Split(text string) []string { return strings.Split(text, "\n") }

func TestIndexer_EmbedWithoutEmbedder(t *testing.T) {
	x := NewIndexer(nil, setupStore(t).EmbeddingStore(), nil, "v1")

	_, err := x.Embed(context.Background(), "text")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.False(t, x.Available())
}

func TestIndexer_EmbedMeanPoolsChunks(t *testing.T) {
	x := NewIndexer(newMockEmbedder("v1"), setupStore(t).EmbeddingStore(), lineSplitter{}, "v1")

	vec, err := x.Embed(context.Background(), "python python\n\ngarden")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0.5, 0}, vec)
}

func TestIndexer_Nearest(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	ids := make([]int64, 4)
	for i, title := range []string{"python asyncio", "cooking", "python", "python asyncio"} {
		ids[i] = saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/" + string(rune('a'+i)), Title: title}).ID
	}
	x := NewIndexer(newMockEmbedder("v1"), store.EmbeddingStore(), nil, "v1")
	for i, title := range []string{"python asyncio", "cooking", "python", "python asyncio"} {
		_, err := x.Index(ctx, ids[i], title, false)
		require.NoError(t, err)
	}
	// A vector of the wrong dimension is ignored.
	require.NoError(t, store.EmbeddingStore().UpsertEmbedding(ctx, domain.EmbeddingRecord{
		BookmarkID: ids[1], ModelVersion: "v1", Vector: []float32{1, 2},
	}))

	query, err := x.Embed(ctx, "asyncio in python")
	require.NoError(t, err)
	neighbors, err := x.Nearest(ctx, query, 3, nil)
	require.NoError(t, err)

	require.Len(t, neighbors, 3)
	assert.Equal(t, ids[0], neighbors[0].BookmarkID)
	assert.Equal(t, ids[3], neighbors[1].BookmarkID, "equal distance breaks ties by lower id")
	assert.Equal(t, ids[2], neighbors[2].BookmarkID)
	assert.InDelta(t, 0, neighbors[0].Distance, 1e-6)
	assert.InDelta(t, 1, neighbors[0].Similarity(), 1e-6)
}

func TestIndexer_NearestIgnoresOtherVersions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	b := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/a", Title: "python"})
	v1 := NewIndexer(newMockEmbedder("v1"), store.EmbeddingStore(), nil, "v1")
	_, err := v1.Index(ctx, b.ID, "python", false)
	require.NoError(t, err)

	v2 := NewIndexer(newMockEmbedder("v2"), store.EmbeddingStore(), nil, "v2")
	neighbors, err := v2.Nearest(ctx, []float32{1, 0, 0, 0, 0}, 10, nil)

	require.NoError(t, err)
	assert.Empty(t, neighbors)
}

func TestIndexer_IndexSkipsUnchangedContent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	b := saveBookmark(t, store, domain.Bookmark{URL: "https://example.com/a", Title: "python"})
	embedder := newMockEmbedder("v1")
	x := NewIndexer(embedder, store.EmbeddingStore(), nil, "v1")

	skipped, err := x.Index(ctx, b.ID, "python", false)
	require.NoError(t, err)
	assert.False(t, skipped)

	skipped, err = x.Index(ctx, b.ID, "python", false)
	require.NoError(t, err)
	assert.True(t, skipped)

	skipped, err = x.Index(ctx, b.ID, "python garden", false)
	require.NoError(t, err)
	assert.False(t, skipped)

	skipped, err = x.Index(ctx, b.ID, "python garden", true)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, 3, embedder.Calls())
}
