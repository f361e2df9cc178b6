package driving

import (
	"context"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// BookmarkService manages captured bookmarks and their user-assigned tags.
type BookmarkService interface {
	// Add captures a new bookmark.
	// Returns domain.ErrDuplicateBookmark if the URL is already stored.
	Add(ctx context.Context, b domain.Bookmark) (*domain.Bookmark, error)

	// Get retrieves a bookmark by ID.
	Get(ctx context.Context, id int64) (*domain.Bookmark, error)

	// List returns bookmarks by recency.
	List(ctx context.Context, filter domain.BookmarkFilter) ([]domain.Bookmark, error)

	// Delete removes a bookmark and all derived data.
	Delete(ctx context.Context, id int64) error

	// Tags returns the bookmark's tag assignments.
	Tags(ctx context.Context, id int64) ([]domain.TagAssignment, error)

	// AddUserTag assigns a user tag with full confidence.
	AddUserTag(ctx context.Context, id int64, name, category string) error

	// ListTags returns every tag with its usage count.
	ListTags(ctx context.Context) ([]domain.TagCount, error)
}
