package driven

import "context"

// ContentNormaliser turns captured page content into plain text for the
// classifier and the embedding model.
type ContentNormaliser interface {
	// Normalise returns the readable text of raw. Plain text passes through.
	Normalise(ctx context.Context, raw string) (string, error)
}
