package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyMinConfidence        = "min_confidence"
	keyEscalation           = "escalation_threshold"
	keyMaxConcurrent        = "max_concurrent_classifications"
	keyWeightText           = "search_signal_weights.text"
	keyWeightTag            = "search_signal_weights.tag"
	keyWeightSemantic       = "search_signal_weights.semantic"
	keyEmbeddingVersion     = "embedding_model_version"
	keyPerTierTimeoutMS     = "per_tier_timeout_ms"
	keySemanticTopN         = "semantic_top_n"
	keyRequiredCategories   = "required_categories"
	keyRules                = "rules"
	keyLabels               = "labels"
	keyEmbedModel           = "embedding.model"
	keyEmbedBaseURL         = "embedding.base_url"
	keyEmbedDimensions      = "embedding.dimensions"
	keyLLMModel             = "llm.model"
	keyLLMBaseURL           = "llm.base_url"
	keyLLMRequestsPerSecond = "llm.requests_per_second"
	keyAutoTagIntervalSec   = "auto_tag.interval_seconds"
	keyAutoTagBatchSize     = "auto_tag.batch_size"
)

// valueKind is the type a settable key holds.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
)

// settableKeys are the scalar keys Set accepts. Tables and lists are
// edited in the config file.
var settableKeys = map[string]valueKind{
	keyMinConfidence:        kindFloat,
	keyEscalation:           kindFloat,
	keyMaxConcurrent:        kindInt,
	keyWeightText:           kindFloat,
	keyWeightTag:            kindFloat,
	keyWeightSemantic:       kindFloat,
	keyEmbeddingVersion:     kindString,
	keyPerTierTimeoutMS:     kindInt,
	keySemanticTopN:         kindInt,
	keyEmbedModel:           kindString,
	keyEmbedBaseURL:         kindString,
	keyEmbedDimensions:      kindInt,
	keyLLMModel:             kindString,
	keyLLMBaseURL:           kindString,
	keyLLMRequestsPerSecond: kindFloat,
	keyAutoTagIntervalSec:   kindInt,
	keyAutoTagBatchSize:     kindInt,
}

// SettableKeys returns the keys Set accepts, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService reads application settings from the config store and
// fills in defaults for keys the file leaves out.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves and validates the current settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.getString(keyEmbedBaseURL, defaults.Embedding.BaseURL),
			Dimensions: s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:           s.getString(keyLLMBaseURL, defaults.LLM.BaseURL),
			RequestsPerSecond: s.getFloat(keyLLMRequestsPerSecond, defaults.LLM.RequestsPerSecond),
		},
	}

	settings.AutoTag = defaults.AutoTag
	if sec := s.getInt(keyAutoTagIntervalSec, 0); sec > 0 {
		settings.AutoTag.Interval = time.Duration(sec) * time.Second
	}
	settings.AutoTag.BatchSize = s.getInt(keyAutoTagBatchSize, defaults.AutoTag.BatchSize)

	engine := defaults.Engine
	engine.MinConfidence = s.getFloat(keyMinConfidence, engine.MinConfidence)
	engine.EscalationThreshold = s.getFloat(keyEscalation, engine.EscalationThreshold)
	engine.MaxConcurrentClassifications = s.getInt(keyMaxConcurrent, engine.MaxConcurrentClassifications)
	engine.SearchSignalWeights = domain.SignalWeights{
		Text:     s.getFloat(keyWeightText, engine.SearchSignalWeights.Text),
		Tag:      s.getFloat(keyWeightTag, engine.SearchSignalWeights.Tag),
		Semantic: s.getFloat(keyWeightSemantic, engine.SearchSignalWeights.Semantic),
	}
	// The active version follows the embedding model unless pinned.
	engine.EmbeddingModelVersion = s.getString(keyEmbeddingVersion, settings.Embedding.Model)
	if ms := s.getInt(keyPerTierTimeoutMS, 0); ms != 0 {
		engine.PerTierTimeout = time.Duration(ms) * time.Millisecond
	}
	engine.SemanticTopN = s.getInt(keySemanticTopN, engine.SemanticTopN)
	engine.RequiredCategories = s.configStore.GetStringSlice(keyRequiredCategories)

	rules, err := s.rules()
	if err != nil {
		return nil, err
	}
	engine.Rules = rules
	if labels := s.labels(); len(labels) > 0 {
		engine.Labels = labels
	}

	settings.Engine = engine
	if err := engine.Validate(); err != nil {
		return nil, err
	}
	if settings.LLM.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("%w: llm.requests_per_second must be positive", domain.ErrInvalidConfig)
	}
	if settings.AutoTag.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: auto_tag.batch_size must be positive", domain.ErrInvalidConfig)
	}
	return settings, nil
}

// Set validates and persists one scalar setting.
func (s *SettingsService) Set(key, raw string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var value any
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer, got %q", domain.ErrInvalidInput, key, raw)
		}
		value = n
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number, got %q", domain.ErrInvalidInput, key, raw)
		}
		value = f
	default:
		value = raw
	}

	// Validate against the settings the new value would produce before
	// touching the file.
	trial := &SettingsService{configStore: overlayStore{ConfigStore: s.configStore, key: key, value: value}}
	if _, err := trial.Get(); err != nil {
		return err
	}
	return s.configStore.Set(key, value)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Path returns the location of the backing config file.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// rules reads the [[rules]] tables.
func (s *SettingsService) rules() ([]domain.Rule, error) {
	tables := s.configStore.GetTables(keyRules)
	if len(tables) == 0 {
		return nil, nil
	}
	rules := make([]domain.Rule, 0, len(tables))
	for i, t := range tables {
		r := domain.Rule{
			Tag:          tableString(t, "tag"),
			Category:     tableString(t, "category"),
			Keywords:     tableStrings(t, "keywords"),
			Domains:      tableStrings(t, "domains"),
			TitlePattern: tableString(t, "title_pattern"),
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// labels reads the [[labels]] tables.
func (s *SettingsService) labels() []domain.Label {
	tables := s.configStore.GetTables(keyLabels)
	labels := make([]domain.Label, 0, len(tables))
	for _, t := range tables {
		labels = append(labels, domain.Label{
			Name:        tableString(t, "name"),
			Category:    tableString(t, "category"),
			Description: tableString(t, "description"),
		})
	}
	return labels
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, ok := s.configStore.GetFloat(key)
	if !ok {
		return defaultVal
	}
	return val
}

func tableString(t map[string]any, key string) string {
	v, _ := t[key].(string)
	return v
}

func tableStrings(t map[string]any, key string) []string {
	switch v := t[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// overlayStore shows one key with a pending value on top of a config store.
type overlayStore struct {
	driven.ConfigStore
	key   string
	value any
}

func (o overlayStore) Get(key string) (any, bool) {
	if key == o.key {
		return o.value, true
	}
	return o.ConfigStore.Get(key)
}

func (o overlayStore) GetString(key string) string {
	if key == o.key {
		v, _ := o.value.(string)
		return v
	}
	return o.ConfigStore.GetString(key)
}

func (o overlayStore) GetInt(key string) int {
	if key == o.key {
		v, _ := o.value.(int64)
		return int(v)
	}
	return o.ConfigStore.GetInt(key)
}

func (o overlayStore) GetFloat(key string) (float64, bool) {
	if key == o.key {
		switch v := o.value.(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		}
		return 0, false
	}
	return o.ConfigStore.GetFloat(key)
}
