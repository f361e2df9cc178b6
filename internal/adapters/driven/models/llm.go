package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/logger"
)

const (
	// maxPromptContent caps the page text sent to the LLM, in bytes.
	maxPromptContent = 6000

	// maxLLMTags caps the tags taken from one answer.
	maxLLMTags = 8

	// defaultLLMConfidence is used when the model omits a confidence.
	defaultLLMConfidence = 0.5
)

// llmTagger asks the LLM for open-vocabulary tags.
type llmTagger struct {
	llm        driven.LLMService
	template   string
	categories []string
	limiter    *rate.Limiter
}

// llmAnswer is the JSON shape the prompt asks for.
type llmAnswer struct {
	Tags []llmTag `json:"tags"`
}

type llmTag struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

// Score prompts the LLM and parses its tags.
func (t *llmTagger) Score(ctx context.Context, text string) ([]domain.LabelScore, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(t.template, strings.Join(t.categories, ", "), truncate(text, maxPromptContent))
	out, err := t.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   512,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	scores, err := parseLLMTags(out)
	if err != nil {
		logger.Debug("Unparseable LLM answer: %q", out)
		return nil, err
	}
	return scores, nil
}

// parseLLMTags accepts {"tags": [...]} or a bare array, optionally wrapped
// in a markdown code fence or surrounded by prose.
func parseLLMTags(out string) ([]domain.LabelScore, error) {
	body := stripCodeFence(strings.TrimSpace(out))

	var tags []llmTag
	if start := strings.IndexAny(body, "{["); start >= 0 && body[start] == '[' {
		end := strings.LastIndexByte(body, ']')
		if end < start {
			return nil, fmt.Errorf("LLM answer has no closing bracket")
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &tags); err != nil {
			return nil, fmt.Errorf("decoding LLM tags: %w", err)
		}
	} else {
		start := strings.IndexByte(body, '{')
		end := strings.LastIndexByte(body, '}')
		if start < 0 || end < start {
			return nil, fmt.Errorf("LLM answer is not JSON")
		}
		var answer llmAnswer
		if err := json.Unmarshal([]byte(body[start:end+1]), &answer); err != nil {
			return nil, fmt.Errorf("decoding LLM tags: %w", err)
		}
		tags = answer.Tags
	}

	scores := make([]domain.LabelScore, 0, min(len(tags), maxLLMTags))
	for _, tag := range tags {
		if len(scores) == maxLLMTags {
			break
		}
		if domain.NormalizeTagName(tag.Name) == "" {
			continue
		}
		conf := defaultLLMConfidence
		if tag.Confidence != nil {
			conf = *tag.Confidence
		}
		scores = append(scores, domain.LabelScore{Label: tag.Name, Category: tag.Category, Confidence: conf})
	}
	return scores, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
