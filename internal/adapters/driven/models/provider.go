// Package models implements driven.ModelProvider on top of the local
// embedding and LLM services.
//
// The lightweight tier compares content embeddings against one prototype
// vector per configured label. The heavyweight tier asks the LLM for
// open-vocabulary tags as JSON.
package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.ModelProvider = (*Provider)(nil)

// errNotConfigured is returned when the service behind a tier is missing.
var errNotConfigured = errors.New("not configured")

// Config wires the services behind each tier. Nil services leave their
// tier unavailable.
type Config struct {
	Embedder driven.EmbeddingService
	LLM      driven.LLMService
	Prompts  driven.PromptStore

	// Labels is the lightweight tier's fixed label set.
	Labels []domain.Label

	// Categories are offered to the LLM as preferred categories.
	Categories []string

	// RequestsPerSecond throttles heavyweight calls. Zero disables throttling.
	RequestsPerSecond float64
}

// Provider loads scorers for the model-backed tiers.
type Provider struct {
	cfg Config
}

// NewProvider creates a provider.
func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg}
}

// Load prepares the scorer for tier. It checks the backing service is
// reachable, so a failure here marks the tier unavailable.
func (p *Provider) Load(ctx context.Context, tier domain.TierName) (driven.Scorer, error) {
	switch tier {
	case domain.TierLightweight:
		return p.loadLightweight(ctx)
	case domain.TierHeavyweight:
		return p.loadHeavyweight(ctx)
	default:
		return nil, fmt.Errorf("no model for %s tier", tier)
	}
}

func (p *Provider) loadLightweight(ctx context.Context) (driven.Scorer, error) {
	if p.cfg.Embedder == nil {
		return nil, fmt.Errorf("embedding service %w", errNotConfigured)
	}
	if len(p.cfg.Labels) == 0 {
		return nil, fmt.Errorf("label set %w", errNotConfigured)
	}
	if err := p.cfg.Embedder.Ping(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(p.cfg.Labels))
	for i, l := range p.cfg.Labels {
		texts[i] = labelText(l)
	}
	vectors, err := p.cfg.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding label prototypes: %w", err)
	}
	logger.Debug("Embedded %d label prototypes with %s", len(vectors), p.cfg.Embedder.ModelName())
	return newPrototypeScorer(p.cfg.Embedder, p.cfg.Labels, vectors)
}

func (p *Provider) loadHeavyweight(ctx context.Context) (driven.Scorer, error) {
	if p.cfg.LLM == nil {
		return nil, fmt.Errorf("LLM service %w", errNotConfigured)
	}
	if p.cfg.Prompts == nil {
		return nil, fmt.Errorf("prompt store %w", errNotConfigured)
	}
	if err := p.cfg.LLM.Ping(ctx); err != nil {
		return nil, err
	}

	template, err := p.cfg.Prompts.Load(driven.PromptHeavyweightTags)
	if err != nil {
		return nil, err
	}
	if n := strings.Count(template, "%s"); n != 2 {
		return nil, fmt.Errorf("%w: %s prompt needs 2 %%s placeholders, has %d",
			domain.ErrInvalidConfig, driven.PromptHeavyweightTags, n)
	}

	limit := rate.Inf
	if p.cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(p.cfg.RequestsPerSecond)
	}
	return &llmTagger{
		llm:        p.cfg.LLM,
		template:   template,
		categories: knownCategories(p.cfg.Categories, p.cfg.Labels),
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// labelText is what a label's prototype vector is computed from.
func labelText(l domain.Label) string {
	if l.Description == "" {
		return l.Name
	}
	return l.Name + ": " + l.Description
}

// knownCategories merges configured and label categories, case-insensitively
// deduplicated and sorted.
func knownCategories(configured []string, labels []domain.Label) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		c = domain.NormalizeCategory(c)
		if key := domain.CategoryKey(c); key != "" && !seen[key] {
			seen[key] = true
			out = append(out, c)
		}
	}
	for _, c := range configured {
		add(c)
	}
	for _, l := range labels {
		add(l.Category)
	}
	sort.Strings(out)
	return out
}
