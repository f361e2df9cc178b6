// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// QueryChanged is sent when the search query input changes.
type QueryChanged struct {
	Query string
}

// SearchRequested is a command to perform a search.
type SearchRequested struct {
	Query domain.Query
}

// SearchCompleted carries search results back to the model.
type SearchCompleted struct {
	Results []domain.SearchResult
	Err     error
}

// ResultSelected is sent when a search result is selected.
type ResultSelected struct {
	Index int
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the search input and results view.
	ViewSearch
	// ViewTags lists every tag with its usage count.
	ViewTags
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewBookmark shows a single bookmark and its tags.
	ViewBookmark
	// ViewSettings is the settings configuration view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewTags:
		return "tags"
	case ViewHelp:
		return "help"
	case ViewBookmark:
		return "bookmark"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// TagsLoaded carries every tag with its usage count.
type TagsLoaded struct {
	Tags []domain.TagCount
	Err  error
}

// TagSelected asks the search view to find bookmarks holding Tag.
type TagSelected struct {
	Tag string
}

// BookmarkSelected asks for a bookmark's details to be shown.
type BookmarkSelected struct {
	ID int64
}

// BookmarkLoaded carries a bookmark and its tag assignments.
type BookmarkLoaded struct {
	Bookmark *domain.Bookmark
	Tags     []domain.TagAssignment
	Err      error
}

// BookmarkClassified signals a classification pass finished.
type BookmarkClassified struct {
	BookmarkID int64
	Result     *domain.ClassificationResult
	Err        error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals a setting was saved.
type SettingsSaved struct {
	Key string
	Err error
}
