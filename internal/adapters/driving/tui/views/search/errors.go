package search

import "errors"

// Error definitions for the search view.
var (
	// ErrNoSearchService indicates that no search service was provided.
	ErrNoSearchService = errors.New("search service is required")

	// ErrNoClassifier indicates that re-tagging is not available.
	ErrNoClassifier = errors.New("classification service is not configured")
)
