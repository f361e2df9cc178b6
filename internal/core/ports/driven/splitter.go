package driven

// TextSplitter breaks long content into overlapping pieces that fit the
// embedding model's context window.
type TextSplitter interface {
	// Split returns the pieces of text in order.
	// Short text is returned as a single piece.
	Split(text string) []string
}
