package driven

import (
	"context"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// TextIndex provides literal full-text search over bookmarks.
// Storage keeps it populated on insert; the core never writes to it.
type TextIndex interface {
	// TextSearch returns matching bookmarks that pass filter, ordered by
	// relevance. The filter applies before limit; its Offset and Limit are
	// ignored. Scores are positive; higher is more relevant.
	TextSearch(ctx context.Context, query string, filter domain.BookmarkFilter, limit int) ([]TextHit, error)
}

// TextHit represents a literal search result.
type TextHit struct {
	BookmarkID int64
	Score      float64
}
