// Package tui provides an interactive terminal user interface for tagmark.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides hybrid bookmark search.
	Search driving.SearchService

	// Bookmarks reads bookmarks, their tags and the tag vocabulary.
	Bookmarks driving.BookmarkService

	// Classifier re-runs classification from the bookmark view. Optional.
	Classifier driving.ClassificationService

	// Settings manages application settings. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	search driving.SearchService,
	bookmarks driving.BookmarkService,
	classifier driving.ClassificationService,
	settings driving.SettingsService,
) *Ports {
	return &Ports{
		Search:     search,
		Bookmarks:  bookmarks,
		Classifier: classifier,
		Settings:   settings,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Bookmarks == nil {
		return ErrMissingBookmarkService
	}
	return nil
}
