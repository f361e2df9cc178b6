package driving

import (
	"context"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search resolves a hybrid query into ranked bookmarks.
	// Returns domain.ErrInvalidQuery for malformed requests.
	Search(ctx context.Context, query domain.Query) ([]domain.SearchResult, error)
}
