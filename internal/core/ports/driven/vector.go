package driven

import (
	"context"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// EmbeddingStore persists bookmark vectors keyed by (bookmark, model version).
// Records of superseded versions are kept so versions can be compared.
type EmbeddingStore interface {
	// UpsertEmbedding stores the record, replacing any record with the same
	// bookmark and model version.
	UpsertEmbedding(ctx context.Context, rec domain.EmbeddingRecord) error

	// GetEmbedding returns the bookmark's record for version.
	// Returns domain.ErrNotFound if there is none.
	GetEmbedding(ctx context.Context, bookmarkID int64, version string) (*domain.EmbeddingRecord, error)

	// ListEmbeddings returns every record of version ordered by bookmark ID.
	ListEmbeddings(ctx context.Context, version string) ([]domain.EmbeddingRecord, error)

	// CountByVersion returns the number of records per model version.
	CountByVersion(ctx context.Context) (map[string]int, error)
}
