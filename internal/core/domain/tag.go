package domain

import "strings"

// Tag is a categorised label. Name is unique within its category after
// normalisation.
type Tag struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Key returns the deduplication key for the tag.
func (t Tag) Key() string {
	return TagKey(t.Name, t.Category)
}

// TagAssignment links a bookmark to a tag with a confidence in [0, 1].
type TagAssignment struct {
	BookmarkID int64   `json:"bookmark_id"`
	Tag        Tag     `json:"tag"`
	Confidence float64 `json:"confidence"`

	// AutoGenerated distinguishes model assignments from user assignments.
	// The same tag can be both, on different bookmarks.
	AutoGenerated bool `json:"auto_generated"`
}

// TagCount is a tag with the number of bookmarks holding it.
type TagCount struct {
	Tag   Tag `json:"tag"`
	Count int `json:"count"`

	// UserCount is how many of those assignments a user made.
	UserCount int `json:"user_count"`
}

// NormalizeTagName lower-cases a tag name and collapses whitespace.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NormalizeCategory collapses whitespace in a category but keeps its casing
// for display. Comparisons use CategoryKey.
func NormalizeCategory(category string) string {
	return strings.Join(strings.Fields(category), " ")
}

// CategoryKey is the case-insensitive comparison form of a category.
func CategoryKey(category string) string {
	return strings.ToLower(NormalizeCategory(category))
}

// TagKey is the deduplication key of a (name, category) pair.
func TagKey(name, category string) string {
	return CategoryKey(category) + "\x00" + NormalizeTagName(name)
}

// DefaultCategory is assigned to tags whose tier did not name a category.
const DefaultCategory = "General"
