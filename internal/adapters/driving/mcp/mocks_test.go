package mcp

import (
	"context"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	queries []domain.Query
}

func (m *mockSearchService) Search(_ context.Context, q domain.Query) ([]domain.SearchResult, error) {
	m.queries = append(m.queries, q)
	return m.results, m.err
}

// mockBookmarkService is a mock implementation of driving.BookmarkService.
type mockBookmarkService struct {
	added    []domain.Bookmark
	bookmark *domain.Bookmark
	tags     []domain.TagAssignment
	counts   []domain.TagCount
	err      error
}

func (m *mockBookmarkService) Add(_ context.Context, b domain.Bookmark) (*domain.Bookmark, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.added = append(m.added, b)
	b.ID = int64(len(m.added))
	return &b, nil
}

func (m *mockBookmarkService) Get(_ context.Context, _ int64) (*domain.Bookmark, error) {
	if m.bookmark == nil {
		return nil, domain.ErrNotFound
	}
	return m.bookmark, m.err
}

func (m *mockBookmarkService) List(_ context.Context, _ domain.BookmarkFilter) ([]domain.Bookmark, error) {
	return nil, m.err
}

func (m *mockBookmarkService) Delete(_ context.Context, _ int64) error {
	return m.err
}

func (m *mockBookmarkService) Tags(_ context.Context, _ int64) ([]domain.TagAssignment, error) {
	return m.tags, m.err
}

func (m *mockBookmarkService) AddUserTag(_ context.Context, _ int64, _, _ string) error {
	return m.err
}

func (m *mockBookmarkService) ListTags(_ context.Context) ([]domain.TagCount, error) {
	return m.counts, m.err
}

// mockClassifier is a mock implementation of driving.ClassificationService.
type mockClassifier struct {
	result *domain.ClassificationResult
	err    error
	opts   []domain.ClassifyOptions
}

func (m *mockClassifier) ClassifyAndTag(
	_ context.Context, b domain.Bookmark, opts domain.ClassifyOptions,
) (*domain.ClassificationResult, error) {
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	r := *m.result
	r.BookmarkID = b.ID
	return &r, nil
}

func (m *mockClassifier) ClassifyByID(
	_ context.Context, id int64, opts domain.ClassifyOptions,
) (*domain.ClassificationResult, error) {
	return m.ClassifyAndTag(context.Background(), domain.Bookmark{ID: id}, opts)
}

func (m *mockClassifier) ClassifyBatch(
	_ context.Context, _ []int64, _ domain.ClassifyOptions,
) []domain.BatchOutcome {
	return nil
}
