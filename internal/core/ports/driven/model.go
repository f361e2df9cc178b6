package driven

import (
	"context"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// ModelProvider loads the models behind the lightweight and heavyweight tiers.
// Load may be slow; callers cache the returned Scorer for the process lifetime.
// A load failure makes the tier unavailable, it is never fatal.
type ModelProvider interface {
	Load(ctx context.Context, tier domain.TierName) (Scorer, error)
}

// Scorer is a loaded, read-only model safe for concurrent use.
type Scorer interface {
	// Score returns labelled confidences for the text.
	Score(ctx context.Context, text string) ([]domain.LabelScore, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, text string) ([]domain.LabelScore, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, text string) ([]domain.LabelScore, error) {
	return f(ctx, text)
}
