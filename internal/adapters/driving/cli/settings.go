package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tagmark/internal/adapters/driven/ai"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage engine settings",
	Long: `View and change classification, search and model settings.

Scalar settings can be changed with 'tagmark settings set'. Rules, labels
and required categories are tables and lists; edit them in the config file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Changes one scalar setting and writes it to the config file.
The value is checked before it is saved.

Keys:
  ` + strings.Join(services.SettableKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the embedding and LLM services are reachable",
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	e := settings.Engine

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", settingsService.Path())
	cmd.Println()

	cmd.Println("[Classification]")
	cmd.Printf("  Min confidence: %s\n", formatFloat(e.MinConfidence))
	cmd.Printf("  Escalation threshold: %s\n", formatFloat(e.EscalationThreshold))
	cmd.Printf("  Max concurrent passes: %d\n", e.MaxConcurrentClassifications)
	cmd.Printf("  Per-tier timeout: %s\n", e.PerTierTimeout)
	cmd.Printf("  Required categories: %s\n", joinOrNone(e.RequiredCategories))
	cmd.Printf("  Rules: %d\n", len(e.Rules))
	cmd.Printf("  Labels: %d\n", len(e.Labels))
	cmd.Println()

	cmd.Println("[Search]")
	w := e.SearchSignalWeights
	cmd.Printf("  Signal weights: text %s, tag %s, semantic %s\n",
		formatFloat(w.Text), formatFloat(w.Tag), formatFloat(w.Semantic))
	cmd.Printf("  Semantic top N: %d\n", e.SemanticTopN)
	cmd.Printf("  Embedding model version: %s\n", e.EmbeddingModelVersion)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Model: %s\n", orNotSet(settings.Embedding.Model))
	cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Model: %s\n", orNotSet(settings.LLM.Model))
	cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	cmd.Printf("  Requests per second: %s\n", formatFloat(settings.LLM.RequestsPerSecond))
	cmd.Println()

	cmd.Println("[Auto-tagging]")
	cmd.Printf("  Interval: %s\n", settings.AutoTag.Interval)
	cmd.Printf("  Batch size: %d\n", settings.AutoTag.BatchSize)
	cmd.Println()

	if settings.Embedding.Model != "" && settings.Embedding.Model != e.EmbeddingModelVersion {
		cmd.Println("Warning: embedding.model differs from embedding_model_version.")
		cmd.Println("Semantic search only uses embeddings from embedding_model_version.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	key, raw := args[0], args[1]
	if err := settingsService.Set(key, raw); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s = %s\n", key, raw)
	if key == "embedding_model_version" {
		cmd.Println("Run 'tagmark reindex' to embed bookmarks with the new version.")
	}
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	ctx := commandContext(cmd)

	var failed []string
	if err := ai.ValidateEmbedding(ctx, &settings.Embedding); err != nil {
		cmd.Printf("Embedding (%s): %v\n", orNotSet(settings.Embedding.Model), err)
		failed = append(failed, "embedding")
	} else {
		cmd.Printf("Embedding (%s): ok\n", settings.Embedding.Model)
	}
	if settings.LLM.Model == "" {
		cmd.Println("LLM: not configured, heavyweight tier is off")
	} else if err := ai.ValidateLLM(ctx, &settings.LLM); err != nil {
		cmd.Printf("LLM (%s): %v\n", orNotSet(settings.LLM.Model), err)
		failed = append(failed, "llm")
	} else {
		cmd.Printf("LLM (%s): ok\n", settings.LLM.Model)
	}

	if len(failed) > 0 {
		cmd.Println()
		cmd.Println("Classification still runs on the remaining tiers.")
		return fmt.Errorf("%w: %s", domain.ErrModelUnavailable, strings.Join(failed, ", "))
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
