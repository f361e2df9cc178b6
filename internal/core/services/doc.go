// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Engine owns classification passes and the embedding index, the
// SearchService ranks bookmarks over text, tag and semantic signals, and
// the BookmarkService manages the collection itself.
//
// Services are pure Go with no CGO.
package services
