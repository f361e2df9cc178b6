package driving

import (
	"context"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// ClassificationService tags bookmarks using the tiered classifier.
type ClassificationService interface {
	// ClassifyAndTag runs one classification pass for the bookmark, commits
	// its tag assignments atomically and refreshes its embedding.
	// Concurrent calls for the same bookmark share one pass.
	ClassifyAndTag(ctx context.Context, bookmark domain.Bookmark, opts domain.ClassifyOptions) (*domain.ClassificationResult, error)

	// ClassifyByID loads the bookmark and classifies it.
	ClassifyByID(ctx context.Context, id int64, opts domain.ClassifyOptions) (*domain.ClassificationResult, error)

	// ClassifyBatch classifies many bookmarks concurrently within the worker
	// limit. One bookmark's failure does not stop the others.
	ClassifyBatch(ctx context.Context, ids []int64, opts domain.ClassifyOptions) []domain.BatchOutcome
}

// IndexService maintains bookmark embeddings.
type IndexService interface {
	// Reindex embeds every bookmark under the active model version. When
	// force is false, bookmarks with an up-to-date embedding are skipped.
	Reindex(ctx context.Context, force bool) (*domain.ReindexStats, error)

	// VersionCounts returns the number of embeddings per model version.
	VersionCounts(ctx context.Context) (map[string]int, error)
}
