package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Bookmark is a captured page. It is owned by storage and is immutable
// apart from re-classification, which only touches derived data.
type Bookmark struct {
	// ID is the storage-assigned identifier.
	ID int64 `json:"id"`

	// URL is the bookmarked location. Unique across bookmarks.
	URL string `json:"url"`

	// Title is the human-readable page title.
	Title string `json:"title"`

	// Description is an optional summary supplied at capture.
	Description string `json:"description,omitempty"`

	// ContentSnippet is the raw page content captured with the bookmark.
	// It may contain HTML.
	ContentSnippet string `json:"content_snippet,omitempty"`

	// Source records the entry point that captured the bookmark (cli, mcp, import).
	Source string `json:"source,omitempty"`

	// DateAdded is when the bookmark was captured.
	DateAdded time.Time `json:"date_added"`
}

// Validate returns an error if the bookmark cannot be stored.
func (b *Bookmark) Validate() error {
	if strings.TrimSpace(b.URL) == "" {
		return fmt.Errorf("%w: bookmark url required", ErrInvalidInput)
	}
	u, err := url.Parse(b.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: bookmark url %q is not absolute", ErrInvalidInput, b.URL)
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: bookmark title required", ErrInvalidInput)
	}
	return nil
}

// Host returns the lower-cased host of the bookmark URL, or "" if unparsable.
func (b *Bookmark) Host() string {
	u, err := url.Parse(b.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Content returns the classifiable view of the bookmark.
func (b *Bookmark) Content() Content {
	return Content{
		URL:         b.URL,
		Title:       b.Title,
		Description: b.Description,
		Body:        b.ContentSnippet,
	}
}

// Content is the input to classification and embedding.
type Content struct {
	URL         string
	Title       string
	Description string

	// Body is the page text. Preprocessing replaces markup with plain text.
	Body string
}

// Text joins the textual fields into one string for model tiers.
func (c Content) Text() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{c.Title, c.Description, c.Body} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// IsEmpty reports whether there is nothing to classify.
func (c Content) IsEmpty() bool {
	return c.Text() == ""
}

// BookmarkFilter narrows bookmark listings.
type BookmarkFilter struct {
	// From and To bound DateAdded inclusively. Zero values are open bounds.
	From time.Time
	To   time.Time

	// Source restricts to one capture source.
	Source string

	// Unclassified restricts to bookmarks without any tag assignment.
	Unclassified bool

	Offset int
	Limit  int
}

// Restricts reports whether f has a date, source or classification
// constraint.
func (f BookmarkFilter) Restricts() bool {
	return !f.From.IsZero() || !f.To.IsZero() || f.Source != "" || f.Unclassified
}

// Matches reports whether b passes the date and source constraints of f.
func (f BookmarkFilter) Matches(b *Bookmark) bool {
	if !f.From.IsZero() && b.DateAdded.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && b.DateAdded.After(f.To) {
		return false
	}
	if f.Source != "" && !strings.EqualFold(f.Source, b.Source) {
		return false
	}
	return true
}
