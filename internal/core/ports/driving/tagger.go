package driving

import "context"

// AutoTagger classifies bookmarks that have no tags yet in the background.
type AutoTagger interface {
	// Start runs the tagging loop until Stop is called or ctx ends.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for the current round.
	Stop() error

	// RunOnce tags one batch and returns how many passes succeeded.
	RunOnce(ctx context.Context) int
}
