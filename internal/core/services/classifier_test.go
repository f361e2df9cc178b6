package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

func content(title, body string) domain.Content {
	return domain.Content{URL: "https://example.com/post", Title: title, Body: body}
}

func setupClassifier(t *testing.T, cfg domain.EngineConfig, models *mockModelProvider) *Classifier {
	t.Helper()
	c, err := NewClassifier(cfg, models)
	require.NoError(t, err)
	return c
}

func TestClassifier_RuleTierMatchesKeyword(t *testing.T) {
	models := newMockModelProvider()
	c := setupClassifier(t, testConfig(), models)

	out, err := c.Classify(context.Background(), content("Python asyncio tutorial", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	assert.Equal(t, []domain.ScoredTag{{Name: "python", Category: "Tech", Confidence: 1, Tier: domain.TierRule}}, out.Tags)
	assert.Equal(t, []domain.TierName{domain.TierRule, domain.TierLightweight, domain.TierHeavyweight}, out.TiersRun)
}

func TestClassifier_RuleKeywordNeedsWordBoundary(t *testing.T) {
	cfg := testConfig()
	cfg.Rules = []domain.Rule{{Tag: "go", Category: "Tech", Keywords: []string{"go"}}, {Tag: "c++", Category: "Tech", Keywords: []string{"c++"}}}
	c := setupClassifier(t, cfg, newMockModelProvider())

	out, err := c.Classify(context.Background(), content("Good morning", "written in C++ today"), domain.ClassifyOptions{})

	require.NoError(t, err)
	require.Len(t, out.Tags, 1)
	assert.Equal(t, "c++", out.Tags[0].Name)
}

func TestClassifier_RuleDomainMatchesSubdomains(t *testing.T) {
	c := setupClassifier(t, testConfig(), newMockModelProvider())

	out, err := c.Classify(context.Background(), domain.Content{URL: "https://gist.github.com/x", Title: "Snippet"}, domain.ClassifyOptions{})

	require.NoError(t, err)
	require.Len(t, out.Tags, 1)
	assert.Equal(t, "github", out.Tags[0].Name)
}

func TestClassifier_ConfidentLightweightSkipsHeavyweight(t *testing.T) {
	models := newMockModelProvider()
	models.light().scores = []domain.LabelScore{{Label: "programming", Category: "Tech", Confidence: 0.8}}
	c := setupClassifier(t, testConfig(), models)

	out, err := c.Classify(context.Background(), content("Understanding closures", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, models.light().Calls())
	assert.Equal(t, 0, models.heavy().Calls())
	assert.Equal(t, []domain.TierName{domain.TierRule, domain.TierLightweight}, out.TiersRun)
}

func TestClassifier_UnsureLightweightEscalates(t *testing.T) {
	models := newMockModelProvider()
	models.light().scores = []domain.LabelScore{{Label: "programming", Category: "Tech", Confidence: 0.4}}
	models.heavy().scores = []domain.LabelScore{{Label: "functional programming", Category: "Tech", Confidence: 0.9}}
	c := setupClassifier(t, testConfig(), models)

	out, err := c.Classify(context.Background(), content("Understanding closures", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, models.heavy().Calls())
	require.Len(t, out.Tags, 2)
	assert.Equal(t, "functional programming", out.Tags[0].Name)
	assert.Equal(t, domain.TierHeavyweight, out.Tags[0].Tier)
	assert.Equal(t, "programming", out.Tags[1].Name)
}

func TestClassifier_DeepForcesHeavyweight(t *testing.T) {
	models := newMockModelProvider()
	models.light().scores = []domain.LabelScore{{Label: "programming", Category: "Tech", Confidence: 0.95}}
	c := setupClassifier(t, testConfig(), models)

	_, err := c.Classify(context.Background(), content("Understanding closures", ""), domain.ClassifyOptions{Deep: true})

	require.NoError(t, err)
	assert.Equal(t, 1, models.heavy().Calls())
}

func TestClassifier_ThresholdOverride(t *testing.T) {
	models := newMockModelProvider()
	models.light().scores = []domain.LabelScore{{Label: "programming", Category: "Tech", Confidence: 0.5}}
	c := setupClassifier(t, testConfig(), models)

	_, err := c.Classify(context.Background(), content("Closures", ""), domain.ClassifyOptions{EscalationThreshold: ptr(0.5)})

	require.NoError(t, err)
	assert.Equal(t, 0, models.heavy().Calls())
}

func TestClassifier_RuleConfidenceNeverOverridden(t *testing.T) {
	models := newMockModelProvider()
	models.light().scores = []domain.LabelScore{{Label: "Python", Category: "Languages", Confidence: 1}}
	models.heavy().scores = []domain.LabelScore{{Label: "python", Category: "Snakes", Confidence: 0.99}}
	c := setupClassifier(t, testConfig(), models)

	out, err := c.Classify(context.Background(), content("Python tips", ""), domain.ClassifyOptions{Deep: true})

	require.NoError(t, err)
	require.Len(t, out.Tags, 1)
	assert.Equal(t, domain.ScoredTag{Name: "python", Category: "Tech", Confidence: 1, Tier: domain.TierRule}, out.Tags[0])
}

func TestClassifier_MinConfidenceAppliedAfterMerge(t *testing.T) {
	models := newMockModelProvider()
	models.light().scores = []domain.LabelScore{
		{Label: "design", Category: "Design", Confidence: 0.2},
		{Label: "science", Category: "Science", Confidence: 0.1},
	}
	models.heavy().scores = []domain.LabelScore{{Label: "design", Category: "Design", Confidence: 0.35}}
	c := setupClassifier(t, testConfig(), models)

	out, err := c.Classify(context.Background(), content("Colour theory", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	require.Len(t, out.Tags, 1)
	assert.Equal(t, "design", out.Tags[0].Name)
	assert.InDelta(t, 0.35, out.Tags[0].Confidence, 1e-9)

	out, err = c.Classify(context.Background(), content("Colour theory", ""), domain.ClassifyOptions{MinConfidence: ptr(0.05)})
	require.NoError(t, err)
	assert.Len(t, out.Tags, 2)
}

func TestClassifier_OrderIsDeterministic(t *testing.T) {
	models := newMockModelProvider()
	models.light().scores = []domain.LabelScore{
		{Label: "beta", Category: "X", Confidence: 0.7},
		{Label: "alpha", Category: "X", Confidence: 0.7},
		{Label: "gamma", Category: "X", Confidence: 0.9},
	}
	c := setupClassifier(t, testConfig(), models)

	first, err := c.Classify(context.Background(), content("Letters", ""), domain.ClassifyOptions{})
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), content("Letters", ""), domain.ClassifyOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Tags, second.Tags)
	names := []string{first.Tags[0].Name, first.Tags[1].Name, first.Tags[2].Name}
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, names)
}

func TestClassifier_RequiredCategoriesCoveredSkipsLightweight(t *testing.T) {
	cfg := testConfig()
	cfg.RequiredCategories = []string{"tech"}
	models := newMockModelProvider()
	c := setupClassifier(t, cfg, models)

	out, err := c.Classify(context.Background(), content("Python tips", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, models.light().Calls())
	assert.Equal(t, 0, models.heavy().Calls())
	assert.Equal(t, []domain.TierName{domain.TierRule}, out.TiersRun)
}

func TestClassifier_EmptyRequiredCategoriesNeverSkips(t *testing.T) {
	models := newMockModelProvider()
	c := setupClassifier(t, testConfig(), models)

	_, err := c.Classify(context.Background(), content("Python tips", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, models.light().Calls())
}

func TestClassifier_UnavailableLightweightEscalates(t *testing.T) {
	models := newMockModelProvider()
	models.loadErr[domain.TierLightweight] = errors.New("model not pulled")
	models.heavy().scores = []domain.LabelScore{{Label: "history", Category: "Humanities", Confidence: 0.8}}
	c := setupClassifier(t, testConfig(), models)

	out, err := c.Classify(context.Background(), content("The fall of Rome", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	assert.Equal(t, []domain.TierName{domain.TierLightweight}, out.Degraded)
	assert.Equal(t, 1, models.heavy().Calls())
	require.Len(t, out.Tags, 1)
	assert.Equal(t, "history", out.Tags[0].Name)
}

func TestClassifier_HeavyweightTimeoutDegrades(t *testing.T) {
	cfg := testConfig()
	cfg.PerTierTimeout = 20 * time.Millisecond
	models := newMockModelProvider()
	models.heavy().delay = time.Second
	c := setupClassifier(t, cfg, models)

	out, err := c.Classify(context.Background(), content("Python tips", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	assert.Equal(t, []domain.TierName{domain.TierHeavyweight}, out.Degraded)
	require.Len(t, out.Tags, 1)
	assert.Equal(t, "python", out.Tags[0].Name)
}

func TestClassifier_ModelLoadedOnce(t *testing.T) {
	models := newMockModelProvider()
	c := setupClassifier(t, testConfig(), models)

	for i := 0; i < 3; i++ {
		_, err := c.Classify(context.Background(), content("Anything", ""), domain.ClassifyOptions{})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, models.loads[domain.TierLightweight])
	assert.Equal(t, 1, models.loads[domain.TierHeavyweight])
	assert.Equal(t, 3, models.light().Calls())
}

func TestClassifier_CancelledBeforeStart(t *testing.T) {
	models := newMockModelProvider()
	c := setupClassifier(t, testConfig(), models)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, content("Python tips", ""), domain.ClassifyOptions{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, models.light().Calls())
}

func TestClassifier_CancelledDuringTierDiscardsPass(t *testing.T) {
	models := newMockModelProvider()
	models.light().block = make(chan struct{})
	c := setupClassifier(t, testConfig(), models)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := c.Classify(ctx, content("Closures", ""), domain.ClassifyOptions{})
		done <- err
	}()

	require.Eventually(t, func() bool { return models.light().Calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	close(models.light().block)

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, models.heavy().Calls())
}

func TestClassifier_SanitizesModelOutput(t *testing.T) {
	models := newMockModelProvider()
	models.light().scores = []domain.LabelScore{
		{Label: "  ", Confidence: 0.9},
		{Label: "over", Category: "X", Confidence: 1.7},
		{Label: "uncategorised", Confidence: 0.8},
	}
	c := setupClassifier(t, testConfig(), models)

	out, err := c.Classify(context.Background(), content("Stuff", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	require.Len(t, out.Tags, 2)
	assert.Equal(t, domain.ScoredTag{Name: "over", Category: "X", Confidence: 1, Tier: domain.TierLightweight}, out.Tags[0])
	assert.Equal(t, domain.DefaultCategory, out.Tags[1].Category)
}

func TestNewClassifier_InvalidRule(t *testing.T) {
	cfg := testConfig()
	cfg.Rules = []domain.Rule{{Tag: "broken", TitlePattern: "("}}

	_, err := NewClassifier(cfg, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestClassifier_NoProviderIsRuleOnly(t *testing.T) {
	c, err := NewClassifier(testConfig(), nil)
	require.NoError(t, err)

	out, err := c.Classify(context.Background(), content("Python tips", ""), domain.ClassifyOptions{})

	require.NoError(t, err)
	assert.Equal(t, []domain.TierName{domain.TierRule}, out.TiersRun)
	assert.Equal(t, []domain.TierName{domain.TierLightweight, domain.TierHeavyweight}, out.Degraded)
	require.Len(t, out.Tags, 1)
}
