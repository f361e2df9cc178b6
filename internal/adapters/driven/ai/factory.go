// Package ai builds the local inference services from settings and wires
// them into the model provider used by the classifier.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/tagmark/internal/adapters/driven/embedding/ollama"
	ollamallm "github.com/custodia-labs/tagmark/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/tagmark/internal/adapters/driven/models"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Models           driven.ModelProvider
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the services described by settings. Nothing is contacted
// here: the model provider checks reachability when a tier first loads,
// so a stopped Ollama only degrades classification.
func Init(settings *domain.AppSettings, prompts driven.PromptStore) *InitResult {
	embedder := CreateEmbeddingService(&settings.Embedding)
	llm := CreateLLMService(&settings.LLM)

	cfg := models.Config{
		Labels:            settings.Engine.Labels,
		Categories:        settings.Engine.RequiredCategories,
		RequestsPerSecond: settings.LLM.RequestsPerSecond,
		Prompts:           prompts,
	}
	// Assign only non-nil services so the interface fields stay nil.
	if embedder != nil {
		cfg.Embedder = embedder
	}
	if llm != nil {
		cfg.LLM = llm
	}

	result := &InitResult{Models: models.NewProvider(cfg)}
	if embedder != nil {
		result.EmbeddingService = embedder
	}
	if llm != nil {
		result.LLMService = llm
	}
	return result
}

// CreateEmbeddingService creates the Ollama embedding service.
// Returns nil if no model is configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) *ollamaembed.EmbeddingService {
	if settings == nil || settings.Model == "" {
		return nil
	}
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

// CreateLLMService creates the Ollama LLM service.
// Returns nil if no model is configured, which disables the heavyweight tier.
func CreateLLMService(settings *domain.LLMSettings) *ollamallm.LLMService {
	if settings == nil || settings.Model == "" {
		return nil
	}
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// ValidateEmbedding checks the embedding service is reachable and has the
// configured model.
func ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc := CreateEmbeddingService(settings)
	if svc == nil {
		return fmt.Errorf("%w: no embedding model configured", domain.ErrEmbeddingUnavailable)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateLLM checks the LLM service is reachable and has the configured
// model. An unconfigured LLM is valid: the heavyweight tier is then off.
func ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error {
	svc := CreateLLMService(settings)
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}
