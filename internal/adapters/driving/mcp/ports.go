package mcp

import (
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search resolves hybrid queries.
	Search driving.SearchService

	// Bookmarks captures and lists bookmarks and tags.
	Bookmarks driving.BookmarkService

	// Classifier tags bookmarks. Optional: without it the classify tool
	// reports an error and added bookmarks are left for the auto tagger.
	Classifier driving.ClassificationService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Bookmarks == nil {
		return ErrMissingBookmarkService
	}
	return nil
}
