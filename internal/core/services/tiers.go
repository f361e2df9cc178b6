package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// tier is one stage of the classification pipeline. The set is closed:
// ruleTier, lightweightTier and heavyweightTier are its only members.
type tier interface {
	name() domain.TierName
	score(ctx context.Context, c domain.Content) ([]domain.LabelScore, error)
}

var (
	_ tier = (*ruleTier)(nil)
	_ tier = (*modelTier)(nil)
)

// ruleTier assigns configured tags with confidence 1.0.
type ruleTier struct {
	matchers []ruleMatcher
}

func (t *ruleTier) name() domain.TierName { return domain.TierRule }

func (t *ruleTier) score(_ context.Context, c domain.Content) ([]domain.LabelScore, error) {
	host := ""
	if u, err := url.Parse(c.URL); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	text := c.Text()

	var scores []domain.LabelScore
	for i := range t.matchers {
		m := &t.matchers[i]
		if m.matches(c, host, text) {
			scores = append(scores, domain.LabelScore{Label: m.tag, Category: m.category, Confidence: 1})
		}
	}
	return scores, nil
}

// modelTier scores content with a model loaded through the model cache.
// It serves both the lightweight and the heavyweight tier.
type modelTier struct {
	tier   domain.TierName
	models *modelCache
}

func (t *modelTier) name() domain.TierName { return t.tier }

func (t *modelTier) score(ctx context.Context, c domain.Content) ([]domain.LabelScore, error) {
	scorer, err := t.models.get(ctx, t.tier)
	if err != nil {
		return nil, err
	}
	scores, err := scorer.Score(ctx, c.Text())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrModelUnavailable, t.tier, err)
	}
	return sanitizeScores(scores), nil
}

// sanitizeScores drops unusable labels and clamps confidences into [0, 1].
func sanitizeScores(scores []domain.LabelScore) []domain.LabelScore {
	out := scores[:0:0]
	for _, s := range scores {
		if domain.NormalizeTagName(s.Label) == "" || math.IsNaN(s.Confidence) {
			continue
		}
		s.Confidence = math.Max(0, math.Min(1, s.Confidence))
		out = append(out, s)
	}
	return out
}
