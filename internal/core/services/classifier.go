package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// Classifier runs the tier pipeline over one piece of content and merges
// the tiers' labels into a single tag list.
//
// Tiers run cheapest first. The lightweight tier is skipped when the rules
// already covered every required category, and the heavyweight tier with
// it. Otherwise the heavyweight tier runs only when the lightweight tier was
// unsure or unavailable, or when the caller asked for a deep pass.
type Classifier struct {
	cfg      domain.EngineConfig
	tiers    []tier
	required []string
}

// NewClassifier compiles the rule set and prepares the model-backed tiers.
// A nil provider leaves the classifier rule-only; model tiers then degrade.
func NewClassifier(cfg domain.EngineConfig, provider driven.ModelProvider) (*Classifier, error) {
	matchers, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	models := newModelCache(provider, cfg.PerTierTimeout)

	required := make([]string, 0, len(cfg.RequiredCategories))
	for _, cat := range cfg.RequiredCategories {
		if key := domain.CategoryKey(cat); key != "" {
			required = append(required, key)
		}
	}

	return &Classifier{
		cfg: cfg,
		tiers: []tier{
			&ruleTier{matchers: matchers},
			&modelTier{tier: domain.TierLightweight, models: models},
			&modelTier{tier: domain.TierHeavyweight, models: models},
		},
		required: required,
	}, nil
}

// Classify runs the pipeline over content.
//
// Model tier failures and timeouts degrade to the tiers that did run. The
// only error returned is the caller's context error: cancellation is
// checked before each tier starts and again after each model call returns,
// and a cancelled pass is discarded.
func (c *Classifier) Classify(
	ctx context.Context,
	content domain.Content,
	opts domain.ClassifyOptions,
) (*domain.Classification, error) {
	minConfidence := c.cfg.MinConfidence
	if opts.MinConfidence != nil {
		minConfidence = *opts.MinConfidence
	}
	threshold := c.cfg.EscalationThreshold
	if opts.EscalationThreshold != nil {
		threshold = *opts.EscalationThreshold
	}

	merged := make(map[string]domain.ScoredTag)
	out := &domain.Classification{}
	var (
		lightRan     bool
		lightSkipped bool
		lightTop     float64
	)

	for _, t := range c.tiers {
		switch t.name() {
		case domain.TierLightweight:
			if c.rulesCoverRequired(merged, threshold) {
				logger.Debug("Rules cover required categories, skipping lightweight tier")
				lightSkipped = true
				continue
			}
		case domain.TierHeavyweight:
			if !opts.Deep && lightSkipped {
				continue
			}
			if !opts.Deep && lightRan && lightTop >= threshold {
				logger.Debug("Lightweight top confidence %.2f >= %.2f, skipping heavyweight tier", lightTop, threshold)
				continue
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		scores, err := c.runTier(ctx, t, content)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			logger.Warn("Tier %s degraded after %v: %v", t.name(), time.Since(start), err)
			out.Degraded = append(out.Degraded, t.name())
			continue
		}
		logger.Debug("Tier %s returned %d labels in %v", t.name(), len(scores), time.Since(start))

		out.TiersRun = append(out.TiersRun, t.name())
		if t.name() == domain.TierLightweight {
			lightRan = true
			for _, s := range scores {
				lightTop = max(lightTop, s.Confidence)
			}
		}
		mergeScores(merged, t.name(), scores)
	}

	for _, tag := range merged {
		if tag.Confidence >= minConfidence {
			out.Tags = append(out.Tags, tag)
		}
	}
	sortScoredTags(out.Tags)
	return out, nil
}

// runTier executes one tier. Model tiers run on a context detached from the
// caller and bounded by the per-tier timeout, so an issued model call is
// never interrupted midway by the caller.
func (c *Classifier) runTier(ctx context.Context, t tier, content domain.Content) ([]domain.LabelScore, error) {
	if t.name() == domain.TierRule {
		return t.score(ctx, content)
	}

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PerTierTimeout)
	defer cancel()

	type result struct {
		scores []domain.LabelScore
		err    error
	}
	done := make(chan result, 1)
	go func() {
		scores, err := t.score(tctx, content)
		done <- result{scores: scores, err: err}
	}()

	select {
	case r := <-done:
		if errors.Is(r.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s tier timed out after %v", domain.ErrModelUnavailable, t.name(), c.cfg.PerTierTimeout)
		}
		return r.scores, r.err
	case <-tctx.Done():
		return nil, fmt.Errorf("%w: %s tier timed out after %v", domain.ErrModelUnavailable, t.name(), c.cfg.PerTierTimeout)
	}
}

// rulesCoverRequired reports whether every required category already has a
// tag at or above threshold. An empty requirement never covers.
func (c *Classifier) rulesCoverRequired(merged map[string]domain.ScoredTag, threshold float64) bool {
	if len(c.required) == 0 {
		return false
	}
	covered := make(map[string]bool, len(c.required))
	for _, tag := range merged {
		if tag.Confidence >= threshold {
			covered[domain.CategoryKey(tag.Category)] = true
		}
	}
	for _, key := range c.required {
		if !covered[key] {
			return false
		}
	}
	return true
}

// mergeScores folds a tier's labels into merged, keyed by normalized name.
// The higher confidence wins; on a tie the tier already present keeps its
// provenance, which is always the cheaper one.
func mergeScores(merged map[string]domain.ScoredTag, tier domain.TierName, scores []domain.LabelScore) {
	for _, s := range scores {
		name := domain.NormalizeTagName(s.Label)
		if name == "" {
			continue
		}
		existing, ok := merged[name]
		if ok && s.Confidence <= existing.Confidence {
			continue
		}
		category := domain.NormalizeCategory(s.Category)
		if category == "" && ok {
			category = existing.Category
		}
		if category == "" {
			category = domain.DefaultCategory
		}
		merged[name] = domain.ScoredTag{
			Name:       name,
			Category:   category,
			Confidence: s.Confidence,
			Tier:       tier,
		}
	}
}

// sortScoredTags orders tags by confidence descending, then name.
func sortScoredTags(tags []domain.ScoredTag) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Confidence != tags[j].Confidence {
			return tags[i].Confidence > tags[j].Confidence
		}
		return tags[i].Name < tags[j].Name
	})
}
