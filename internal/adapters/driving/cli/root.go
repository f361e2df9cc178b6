// Package cli implements the tagmark command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

var verbose bool

// Services used by the commands. Nil services make their commands fail
// with a "not configured" error.
var (
	bookmarkService driving.BookmarkService
	classifier      driving.ClassificationService
	indexService    driving.IndexService
	searchService   driving.SearchService
	settingsService driving.SettingsService
	autoTagger      driving.AutoTagger
)

var rootCmd = &cobra.Command{
	Use:   "tagmark",
	Short: "Classify and search your bookmarks",
	Long: `tagmark tags bookmarks automatically and finds them again by words,
tags or meaning.

Classification runs in tiers: keyword rules first, then a local embedding
model, then a local LLM when the cheaper tiers are unsure. Everything runs
on your machine through Ollama.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
}

// Services holds the driving ports the commands call.
type Services struct {
	Bookmarks  driving.BookmarkService
	Classifier driving.ClassificationService
	Index      driving.IndexService
	Search     driving.SearchService
	Settings   driving.SettingsService
	AutoTagger driving.AutoTagger
}

// SetServices wires the services for all commands.
func SetServices(s Services) {
	bookmarkService = s.Bookmarks
	classifier = s.Classifier
	indexService = s.Index
	searchService = s.Search
	settingsService = s.Settings
	autoTagger = s.AutoTagger
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
