package driven

import (
	"context"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// BookmarkStore persists bookmarks. Storage owns bookmarks; the engine only
// reads them.
type BookmarkStore interface {
	// SaveBookmark inserts a new bookmark and assigns its ID.
	// Returns domain.ErrDuplicateBookmark if the URL is already stored.
	SaveBookmark(ctx context.Context, b *domain.Bookmark) error

	// GetBookmark retrieves a bookmark by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error)

	// GetBookmarks retrieves the bookmarks that exist among ids, keyed by ID.
	GetBookmarks(ctx context.Context, ids []int64) (map[int64]domain.Bookmark, error)

	// ListBookmarks returns bookmarks matching filter ordered by DateAdded
	// descending, then ID ascending.
	ListBookmarks(ctx context.Context, filter domain.BookmarkFilter) ([]domain.Bookmark, error)

	// DeleteBookmark removes a bookmark with its assignments and embeddings.
	// Returns domain.ErrNotFound if it does not exist.
	DeleteBookmark(ctx context.Context, id int64) error
}

// TagStore persists tags and bookmark-tag assignments.
type TagStore interface {
	// UpsertTag returns the ID of the tag with the normalised name and
	// category, creating it if needed.
	UpsertTag(ctx context.Context, name, category string) (int64, error)

	// UpsertAssignment sets the confidence and origin of a (bookmark, tag)
	// pair, creating the pair if needed. Idempotent. A model write
	// (autoGenerated true) leaves an existing user assignment untouched.
	UpsertAssignment(ctx context.Context, bookmarkID, tagID int64, confidence float64, autoGenerated bool) error

	// GetAssignments returns the bookmark's assignments ordered by confidence
	// descending, then tag name ascending.
	GetAssignments(ctx context.Context, bookmarkID int64) ([]domain.TagAssignment, error)

	// DeleteAssignments removes the bookmark's assignments. When autoOnly is
	// true, the bookmark's user assignments are kept.
	DeleteAssignments(ctx context.Context, bookmarkID int64, autoOnly bool) error

	// BookmarksWithTags returns, for each bookmark holding every tag name in
	// names with confidence > 0 and >= minConfidence, the confidence per name.
	BookmarksWithTags(ctx context.Context, names []string, minConfidence float64) (map[int64]map[string]float64, error)

	// ListTags returns all tags with the number of bookmarks holding them.
	ListTags(ctx context.Context) ([]domain.TagCount, error)

	// Atomic runs fn against a transactional view of the store. Either every
	// write made through the TagTx becomes visible, or none does.
	Atomic(ctx context.Context, fn func(tx TagTx) error) error
}

// TagTx is the write surface available inside TagStore.Atomic.
type TagTx interface {
	UpsertTag(ctx context.Context, name, category string) (int64, error)
	UpsertAssignment(ctx context.Context, bookmarkID, tagID int64, confidence float64, autoGenerated bool) error
	DeleteAssignments(ctx context.Context, bookmarkID int64, autoOnly bool) error
}
