package domain

import (
	"fmt"
	"regexp"
	"time"
)

// Configuration defaults.
const (
	DefaultMinConfidence                = 0.3
	DefaultEscalationThreshold          = 0.6
	DefaultMaxConcurrentClassifications = 4
	DefaultPerTierTimeout               = 30 * time.Second
	DefaultSemanticTopN                 = 50
	DefaultEmbeddingModel               = "nomic-embed-text"
	DefaultEmbeddingDimensions          = 768
	DefaultLLMModel                     = "llama3.2"
	DefaultOllamaBaseURL                = "http://localhost:11434"
	DefaultLLMRequestsPerSecond         = 2.0
)

// Rule is a deterministic matcher for the rule tier. A rule fires when any
// keyword, domain or the title pattern matches.
type Rule struct {
	// Tag and Category are assigned with confidence 1.0 when the rule fires.
	Tag      string
	Category string

	// Keywords are matched as whole words, case-insensitively, in the title,
	// description and body.
	Keywords []string

	// Domains match the bookmark host or any of its parent domains.
	Domains []string

	// TitlePattern is a regular expression applied to the title.
	TitlePattern string
}

// Validate checks the rule has a tag and at least one matcher.
func (r Rule) Validate() error {
	if NormalizeTagName(r.Tag) == "" {
		return fmt.Errorf("%w: rule without tag", ErrInvalidConfig)
	}
	if len(r.Keywords) == 0 && len(r.Domains) == 0 && r.TitlePattern == "" {
		return fmt.Errorf("%w: rule %q has no matcher", ErrInvalidConfig, r.Tag)
	}
	if r.TitlePattern != "" {
		if _, err := regexp.Compile(r.TitlePattern); err != nil {
			return fmt.Errorf("%w: rule %q title pattern: %w", ErrInvalidConfig, r.Tag, err)
		}
	}
	return nil
}

// Label is one entry of the lightweight tier's fixed label set. The
// description is what the model compares content against.
type Label struct {
	Name        string
	Category    string
	Description string
}

// DefaultLabels returns the built-in lightweight label set.
func DefaultLabels() []Label {
	return []Label{
		{Name: "programming", Category: "Tech", Description: "software development, source code, programming languages, libraries and APIs"},
		{Name: "machine learning", Category: "Tech", Description: "machine learning, neural networks, language models and data science"},
		{Name: "devops", Category: "Tech", Description: "infrastructure, deployment, containers, cloud operations and monitoring"},
		{Name: "security", Category: "Tech", Description: "information security, vulnerabilities, cryptography and privacy"},
		{Name: "science", Category: "Science", Description: "scientific research, physics, biology, chemistry and papers"},
		{Name: "finance", Category: "Finance", Description: "money, investing, markets, economics and personal finance"},
		{Name: "news", Category: "News", Description: "current events, politics and world news reporting"},
		{Name: "tutorial", Category: "Learning", Description: "step by step guides, tutorials, courses and how-to articles"},
		{Name: "design", Category: "Design", Description: "user interface design, typography, graphics and user experience"},
		{Name: "health", Category: "Health", Description: "health, fitness, medicine and nutrition"},
	}
}

// EngineConfig holds the process-wide classification and retrieval settings.
// It is built once at startup and treated as read-only afterwards.
type EngineConfig struct {
	// MinConfidence discards merged tags below this confidence.
	MinConfidence float64

	// EscalationThreshold is the lightweight top confidence below which the
	// heavyweight tier runs.
	EscalationThreshold float64

	// MaxConcurrentClassifications bounds passes running model inference.
	MaxConcurrentClassifications int

	// SearchSignalWeights weights text, tag and semantic scores.
	SearchSignalWeights SignalWeights

	// EmbeddingModelVersion is the only vector space semantic search uses.
	EmbeddingModelVersion string

	// PerTierTimeout bounds each model tier call.
	PerTierTimeout time.Duration

	// SemanticTopN is how many nearest neighbours feed the semantic signal.
	SemanticTopN int

	// RequiredCategories lets a confident rule tier skip the lightweight
	// tier once every listed category is covered. Empty disables skipping.
	RequiredCategories []string

	// Rules configure the rule tier.
	Rules []Rule

	// Labels configure the lightweight tier.
	Labels []Label
}

// DefaultEngineConfig returns the documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinConfidence:                DefaultMinConfidence,
		EscalationThreshold:          DefaultEscalationThreshold,
		MaxConcurrentClassifications: DefaultMaxConcurrentClassifications,
		SearchSignalWeights:          SignalWeights{Text: 1, Tag: 1, Semantic: 1},
		EmbeddingModelVersion:        DefaultEmbeddingModel,
		PerTierTimeout:               DefaultPerTierTimeout,
		SemanticTopN:                 DefaultSemanticTopN,
		Labels:                       DefaultLabels(),
	}
}

// Validate checks every value is in range.
func (c EngineConfig) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %.2f outside [0,1]", ErrInvalidConfig, c.MinConfidence)
	}
	if c.EscalationThreshold < 0 || c.EscalationThreshold > 1 {
		return fmt.Errorf("%w: escalation_threshold %.2f outside [0,1]", ErrInvalidConfig, c.EscalationThreshold)
	}
	if c.MaxConcurrentClassifications <= 0 {
		return fmt.Errorf("%w: max_concurrent_classifications must be positive", ErrInvalidConfig)
	}
	w := c.SearchSignalWeights
	if w.Text < 0 || w.Tag < 0 || w.Semantic < 0 {
		return fmt.Errorf("%w: search_signal_weights must not be negative", ErrInvalidConfig)
	}
	if c.EmbeddingModelVersion == "" {
		return fmt.Errorf("%w: embedding_model_version required", ErrInvalidConfig)
	}
	if c.PerTierTimeout <= 0 {
		return fmt.Errorf("%w: per_tier_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.SemanticTopN <= 0 {
		return fmt.Errorf("%w: semantic_top_n must be positive", ErrInvalidConfig)
	}
	for _, r := range c.Rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	for _, l := range c.Labels {
		if NormalizeTagName(l.Name) == "" {
			return fmt.Errorf("%w: label without name", ErrInvalidConfig)
		}
	}
	return nil
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Model is the embedding model name.
	Model string

	// BaseURL is the Ollama endpoint.
	BaseURL string

	// Dimensions is the expected vector size.
	Dimensions int
}

// LLMSettings holds heavyweight tier model configuration.
type LLMSettings struct {
	// Model is the LLM model name. Empty disables the heavyweight tier.
	Model string

	// BaseURL is the Ollama endpoint.
	BaseURL string

	// RequestsPerSecond throttles heavyweight calls.
	RequestsPerSecond float64
}

// AppSettings holds all application settings.
type AppSettings struct {
	Engine    EngineConfig
	Embedding EmbeddingSettings
	LLM       LLMSettings
	AutoTag   AutoTagSettings
}

// DefaultAppSettings returns settings with the documented defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Engine: DefaultEngineConfig(),
		Embedding: EmbeddingSettings{
			Model:      DefaultEmbeddingModel,
			BaseURL:    DefaultOllamaBaseURL,
			Dimensions: DefaultEmbeddingDimensions,
		},
		LLM: LLMSettings{
			Model:             DefaultLLMModel,
			BaseURL:           DefaultOllamaBaseURL,
			RequestsPerSecond: DefaultLLMRequestsPerSecond,
		},
		AutoTag: AutoTagSettings{
			Interval:  DefaultAutoTagInterval,
			BatchSize: DefaultAutoTagBatchSize,
		},
	}
}

// Auto-tagging defaults.
const (
	DefaultAutoTagInterval  = 5 * time.Minute
	DefaultAutoTagBatchSize = 50
)

// AutoTagSettings configures the background tagger that classifies
// bookmarks which have no tags yet.
type AutoTagSettings struct {
	Interval  time.Duration
	BatchSize int
}
