package domain

import (
	"fmt"
	"strings"
	"time"
)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 1000
)

// Query is a hybrid search request. Any combination of Text, Tags and
// Semantic may be set; none set means "most recent bookmarks".
type Query struct {
	// Text is matched against the literal text index.
	Text string

	// Tags must all be held by a result (AND semantics).
	Tags []string

	// Semantic is embedded and compared against bookmark vectors.
	Semantic string

	// MinTagConfidence raises the bar for Tags. Zero means any confidence > 0.
	MinTagConfidence float64

	// From and To bound DateAdded inclusively.
	From time.Time
	To   time.Time

	// Source restricts results to one capture source.
	Source string

	// Offset and Limit paginate the ranked results. Limit 0 uses the default.
	Offset int
	Limit  int
}

// HasText reports whether a literal text signal is present.
func (q Query) HasText() bool { return strings.TrimSpace(q.Text) != "" }

// HasTags reports whether a tag filter is present.
func (q Query) HasTags() bool { return len(q.Tags) > 0 }

// HasSemantic reports whether a semantic signal is present.
func (q Query) HasSemantic() bool { return strings.TrimSpace(q.Semantic) != "" }

// IsEmpty reports whether no signal is present.
func (q Query) IsEmpty() bool {
	return !q.HasText() && !q.HasTags() && !q.HasSemantic()
}

// EffectiveLimit returns the page size to apply.
func (q Query) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultSearchLimit
	}
	return q.Limit
}

// Filter returns the date and source constraints as a BookmarkFilter.
func (q Query) Filter() BookmarkFilter {
	return BookmarkFilter{From: q.From, To: q.To, Source: q.Source}
}

// NormalizedTags returns the required tag names normalised and deduplicated,
// preserving first-seen order.
func (q Query) NormalizedTags() []string {
	seen := make(map[string]bool, len(q.Tags))
	out := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		n := NormalizeTagName(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Validate rejects malformed or conflicting requests with ErrInvalidQuery.
func (q Query) Validate() error {
	if q.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidQuery)
	}
	if q.Limit > MaxSearchLimit {
		return fmt.Errorf("%w: limit exceeds %d", ErrInvalidQuery, MaxSearchLimit)
	}
	if q.MinTagConfidence < 0 || q.MinTagConfidence > 1 {
		return fmt.Errorf("%w: min tag confidence %.2f outside [0,1]", ErrInvalidQuery, q.MinTagConfidence)
	}
	if q.MinTagConfidence > 0 && !q.HasTags() {
		return fmt.Errorf("%w: min tag confidence given without tags", ErrInvalidQuery)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return fmt.Errorf("%w: date range starts after it ends", ErrInvalidQuery)
	}
	for _, t := range q.Tags {
		if NormalizeTagName(t) == "" {
			return fmt.Errorf("%w: empty tag name", ErrInvalidQuery)
		}
	}
	return nil
}

// SignalScores holds the per-signal scores of a result, each in [0, 1].
// A signal that did not match the bookmark scores zero.
type SignalScores struct {
	Text     float64 `json:"text"`
	Tag      float64 `json:"tag"`
	Semantic float64 `json:"semantic"`
}

// SignalWeights weights the search signals in the combined score.
type SignalWeights struct {
	Text     float64
	Tag      float64
	Semantic float64
}

// SearchResult is a ranked hit.
type SearchResult struct {
	Bookmark Bookmark     `json:"bookmark"`
	Score    float64      `json:"score"`
	Signals  SignalScores `json:"signals"`
}
