package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

var (
	searchTags          []string
	searchSemantic      string
	searchNoSemantic    bool
	searchMinConfidence float64
	searchFrom          string
	searchTo            string
	searchSource        string
	searchLimit         int
	searchOffset        int
	searchJSON          bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search bookmarks",
	Long: `Finds bookmarks by words, tags and meaning.

The query text is matched against titles, descriptions and page text, and
by default also compared by meaning against stored embeddings. Tags given
with --tag must all be present. Results blend the signals using
search_signal_weights.

Examples:
  tagmark search "concurrency patterns"
  tagmark search --tag go --tag tutorial
  tagmark search --semantic "how to bake bread" --limit 5
  tagmark search --tag python --from 2025-01-01`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringArrayVar(&searchTags, "tag", nil, "required tag (repeatable)")
	searchCmd.Flags().StringVar(&searchSemantic, "semantic", "", "meaning query, defaults to the query text")
	searchCmd.Flags().BoolVar(&searchNoSemantic, "no-semantic", false, "match words only")
	searchCmd.Flags().Float64Var(&searchMinConfidence, "min-confidence", 0, "minimum tag confidence for --tag")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "only bookmarks added at or after this date")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "only bookmarks added before this date")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "only bookmarks from this source")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	query, err := buildQuery(args)
	if err != nil {
		return err
	}

	results, err := searchService.Search(commandContext(cmd), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

// buildQuery maps the arguments and flags onto a query.
func buildQuery(args []string) (domain.Query, error) {
	q := domain.Query{
		Tags:             searchTags,
		MinTagConfidence: searchMinConfidence,
		Source:           searchSource,
		Offset:           searchOffset,
		Limit:            searchLimit,
	}
	if len(args) == 1 {
		q.Text = args[0]
	}
	if !searchNoSemantic {
		q.Semantic = searchSemantic
		if q.Semantic == "" {
			q.Semantic = q.Text
		}
	}

	var err error
	if q.From, err = parseDate(searchFrom); err != nil {
		return q, err
	}
	if q.To, err = parseDate(searchTo); err != nil {
		return q, err
	}
	return q, q.Validate()
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	if results == nil {
		results = []domain.SearchResult{}
	}
	return printJSON(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, displayTitle(&r.Bookmark), r.Score)
		cmd.Printf("      %s\n", r.Bookmark.URL)
		if signals := formatSignals(r.Signals); signals != "" {
			cmd.Printf("      %s\n", signals)
		}
		cmd.Println()
	}
	return nil
}

// formatSignals lists the non-zero signal scores.
func formatSignals(s domain.SignalScores) string {
	var parts []string
	if s.Text > 0 {
		parts = append(parts, fmt.Sprintf("text %.2f", s.Text))
	}
	if s.Tag > 0 {
		parts = append(parts, fmt.Sprintf("tag %.2f", s.Tag))
	}
	if s.Semantic > 0 {
		parts = append(parts, fmt.Sprintf("semantic %.2f", s.Semantic))
	}
	return strings.Join(parts, "  ")
}
