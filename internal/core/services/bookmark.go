package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
)

// Ensure BookmarkService implements the interface.
var _ driving.BookmarkService = (*BookmarkService)(nil)

// DefaultSource is recorded for bookmarks added without a source.
const DefaultSource = "manual"

// BookmarkService manages the bookmark collection and user tags.
type BookmarkService struct {
	bookmarks driven.BookmarkStore
	tags      driven.TagStore
	now       func() time.Time
}

// NewBookmarkService creates a new bookmark service.
func NewBookmarkService(bookmarks driven.BookmarkStore, tags driven.TagStore) *BookmarkService {
	return &BookmarkService{
		bookmarks: bookmarks,
		tags:      tags,
		now:       time.Now,
	}
}

// Add validates and stores a new bookmark. The store assigns its ID.
func (s *BookmarkService) Add(ctx context.Context, b domain.Bookmark) (*domain.Bookmark, error) {
	b.ID = 0
	b.URL = strings.TrimSpace(b.URL)
	b.Title = strings.TrimSpace(b.Title)
	b.Description = strings.TrimSpace(b.Description)
	b.Source = strings.TrimSpace(b.Source)

	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.Source == "" {
		b.Source = DefaultSource
	}
	if b.DateAdded.IsZero() {
		b.DateAdded = s.now()
	}
	b.DateAdded = b.DateAdded.UTC()

	if err := s.bookmarks.SaveBookmark(ctx, &b); err != nil {
		return nil, fmt.Errorf("save bookmark: %w", err)
	}
	return &b, nil
}

// Get retrieves a bookmark by ID.
func (s *BookmarkService) Get(ctx context.Context, id int64) (*domain.Bookmark, error) {
	return s.bookmarks.GetBookmark(ctx, id)
}

// List returns bookmarks newest first.
func (s *BookmarkService) List(ctx context.Context, filter domain.BookmarkFilter) ([]domain.Bookmark, error) {
	if filter.Offset < 0 || filter.Limit < 0 {
		return nil, fmt.Errorf("%w: negative offset or limit", domain.ErrInvalidInput)
	}
	return s.bookmarks.ListBookmarks(ctx, filter)
}

// Delete removes a bookmark together with its tags and embeddings.
func (s *BookmarkService) Delete(ctx context.Context, id int64) error {
	return s.bookmarks.DeleteBookmark(ctx, id)
}

// Tags returns a bookmark's tag assignments.
func (s *BookmarkService) Tags(ctx context.Context, id int64) ([]domain.TagAssignment, error) {
	if _, err := s.bookmarks.GetBookmark(ctx, id); err != nil {
		return nil, err
	}
	return s.tags.GetAssignments(ctx, id)
}

// AddUserTag assigns a tag by hand with full confidence. User tags survive
// reclassification.
func (s *BookmarkService) AddUserTag(ctx context.Context, id int64, name, category string) error {
	name = domain.NormalizeTagName(name)
	if name == "" {
		return fmt.Errorf("%w: tag name required", domain.ErrInvalidInput)
	}
	category = domain.NormalizeCategory(category)
	if category == "" {
		category = domain.DefaultCategory
	}
	if _, err := s.bookmarks.GetBookmark(ctx, id); err != nil {
		return err
	}

	return s.tags.Atomic(ctx, func(tx driven.TagTx) error {
		tagID, err := tx.UpsertTag(ctx, name, category)
		if err != nil {
			return fmt.Errorf("upsert tag: %w", err)
		}
		return tx.UpsertAssignment(ctx, id, tagID, 1, false)
	})
}

// ListTags returns every tag with the number of bookmarks carrying it.
func (s *BookmarkService) ListTags(ctx context.Context) ([]domain.TagCount, error) {
	return s.tags.ListTags(ctx)
}
