package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// contentPreparer turns a stored bookmark into the content the classifier
// and the indexer see. Both must see the same text for a bookmark.
type contentPreparer struct {
	normaliser driven.ContentNormaliser
}

// prepare normalises the content snippet. A normaliser failure is not
// fatal: the raw snippet is used instead.
func (p contentPreparer) prepare(ctx context.Context, b *domain.Bookmark) domain.Content {
	c := b.Content()
	if p.normaliser == nil || c.Body == "" {
		return c
	}
	body, err := p.normaliser.Normalise(ctx, c.Body)
	if err != nil {
		logger.Warn("Bookmark %d: %v", b.ID, fmt.Errorf("%w: normalising snippet: %w", domain.ErrContentUnavailable, err))
		return c
	}
	c.Body = body
	return c
}
