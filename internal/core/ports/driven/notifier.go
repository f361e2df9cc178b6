package driven

import "context"

// ChangeNotifier reports that stored bookmarks may have changed outside
// this process, for example when another entry point captured one.
type ChangeNotifier interface {
	// Watch returns a channel that receives a value after each burst of
	// changes. The channel is closed when ctx ends.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases the underlying watch.
	Close() error
}
