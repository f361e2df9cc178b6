package domain

import "time"

// TierName identifies one stage of the classification pipeline.
type TierName string

// Classification tiers, cheapest first.
const (
	// TierRule runs deterministic keyword, domain and title matchers.
	TierRule TierName = "rule"

	// TierLightweight maps text to a fixed label set with a small local model.
	TierLightweight TierName = "lightweight"

	// TierHeavyweight produces open-vocabulary tags with a local LLM.
	TierHeavyweight TierName = "heavyweight"
)

// IsValid returns true if the tier is recognised.
func (t TierName) IsValid() bool {
	switch t {
	case TierRule, TierLightweight, TierHeavyweight:
		return true
	default:
		return false
	}
}

// Rank orders tiers by cost. Lower is cheaper.
func (t TierName) Rank() int {
	switch t {
	case TierRule:
		return 0
	case TierLightweight:
		return 1
	case TierHeavyweight:
		return 2
	default:
		return 3
	}
}

// String returns the string representation.
func (t TierName) String() string {
	return string(t)
}

// LabelScore is one labelled confidence produced by a tier.
type LabelScore struct {
	Label      string
	Category   string
	Confidence float64
}

// ScoredTag is a merged classifier output with the tier that produced its
// confidence.
type ScoredTag struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Tier       TierName `json:"tier"`
}

// ClassifyOptions carries explicit per-call overrides. Nil pointers mean the
// engine's configured value applies.
type ClassifyOptions struct {
	// Deep forces the heavyweight tier regardless of lightweight confidence.
	Deep bool

	// MinConfidence overrides the configured discard threshold.
	MinConfidence *float64

	// EscalationThreshold overrides the configured heavyweight escalation floor.
	EscalationThreshold *float64
}

// Classification is the classifier's output for one piece of content.
type Classification struct {
	// Tags are ordered by confidence descending, then name ascending.
	Tags []ScoredTag

	// TiersRun lists the tiers that produced results, in execution order.
	TiersRun []TierName

	// Degraded lists tiers that were wanted but unavailable or timed out.
	Degraded []TierName
}

// ClassificationResult is the outcome of one classify-and-tag pass.
type ClassificationResult struct {
	BookmarkID int64       `json:"bookmark_id"`
	PassID     string      `json:"pass_id"`
	Tags       []ScoredTag `json:"tags"`
	TiersRun   []TierName  `json:"tiers_run"`
	Degraded   []TierName  `json:"degraded,omitempty"`

	// Unclassified is true when no tag survived the pass.
	Unclassified bool `json:"unclassified"`

	// Embedded is true when an embedding for the active model version exists
	// after the pass.
	Embedded bool `json:"embedded"`

	// EmbedError is set when the tags were stored but the embedding write
	// failed. The pass is complete; only the embedding needs a reindex.
	EmbedError string `json:"embed_error,omitempty"`

	// Shared is true when the caller joined a pass already in flight.
	Shared bool `json:"shared"`

	CompletedAt time.Time `json:"completed_at"`
}

// BatchOutcome pairs a bookmark with its pass result or error.
type BatchOutcome struct {
	BookmarkID int64
	Result     *ClassificationResult
	Err        error
}
