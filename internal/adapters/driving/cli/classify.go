package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// classifyPageSize is how many bookmarks --all loads per page.
const classifyPageSize = 200

var (
	classifyAll           bool
	classifyUnclassified  bool
	classifyDeep          bool
	classifyMinConfidence float64
	classifyEscalation    float64

	reindexForce  bool
	reindexStatus bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [bookmark-id...]",
	Short: "Re-run classification for bookmarks",
	Long: `Runs a classification pass for each bookmark and replaces its automatic
tags. User tags are kept.

Passes run concurrently up to max_concurrent_classifications. A failure for
one bookmark is reported and does not stop the others.

Examples:
  tagmark classify 12 15
  tagmark classify --all --deep
  tagmark classify --unclassified --min-confidence 0.2`,
	RunE: runClassify,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Embed bookmarks with the active embedding model",
	Long: `Computes embeddings for every bookmark under the active
embedding_model_version. Bookmarks already embedded with that version are
skipped unless --force is given.

Semantic search only uses embeddings from the active version, so run this
after changing embedding_model_version.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyAll, "all", false, "classify every bookmark")
	classifyCmd.Flags().BoolVar(&classifyUnclassified, "unclassified", false, "classify bookmarks without tags")
	classifyCmd.Flags().BoolVar(&classifyDeep, "deep", false, "run every tier regardless of confidence")
	classifyCmd.Flags().Float64Var(&classifyMinConfidence, "min-confidence", -1, "override min_confidence for this run")
	classifyCmd.Flags().Float64Var(&classifyEscalation, "escalation-threshold", -1,
		"override escalation_threshold for this run")

	reindexCmd.Flags().BoolVar(&reindexForce, "force", false, "re-embed bookmarks that are up to date")
	reindexCmd.Flags().BoolVar(&reindexStatus, "status", false, "only show embeddings per model version")

	rootCmd.AddCommand(classifyCmd, reindexCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	if classifier == nil {
		return errors.New("classification service not configured")
	}

	ids, err := classifyTargets(cmd, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		cmd.Println("Nothing to classify.")
		return nil
	}

	opts := domain.ClassifyOptions{Deep: classifyDeep}
	if classifyMinConfidence >= 0 {
		opts.MinConfidence = &classifyMinConfidence
	}
	if classifyEscalation >= 0 {
		opts.EscalationThreshold = &classifyEscalation
	}

	outcomes := classifier.ClassifyBatch(commandContext(cmd), ids, opts)
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			cmd.Printf("Bookmark %d: failed: %v\n", o.BookmarkID, o.Err)
			continue
		}
		printClassification(cmd, o.Result)
	}

	cmd.Printf("\nClassified %d of %d bookmarks\n", len(outcomes)-failed, len(outcomes))
	if failed > 0 {
		return fmt.Errorf("%d classification passes failed", failed)
	}
	return nil
}

// classifyTargets resolves the bookmark ids from args or the selection flags.
func classifyTargets(cmd *cobra.Command, args []string) ([]int64, error) {
	if len(args) > 0 {
		if classifyAll || classifyUnclassified {
			return nil, errors.New("give bookmark ids or a selection flag, not both")
		}
		ids := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := parseID(a)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	if !classifyAll && !classifyUnclassified {
		return nil, errors.New("requires bookmark ids, --all or --unclassified")
	}
	if bookmarkService == nil {
		return nil, errors.New("bookmark service not configured")
	}

	var ids []int64
	for offset := 0; ; offset += classifyPageSize {
		page, err := bookmarkService.List(commandContext(cmd), domain.BookmarkFilter{
			Unclassified: classifyUnclassified && !classifyAll,
			Offset:       offset,
			Limit:        classifyPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list bookmarks: %w", err)
		}
		for i := range page {
			ids = append(ids, page[i].ID)
		}
		if len(page) < classifyPageSize {
			return ids, nil
		}
	}
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	ctx := commandContext(cmd)

	if !reindexStatus {
		stats, err := indexService.Reindex(ctx, reindexForce)
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		cmd.Printf("Model %s: %d embedded, %d up to date, %d failed\n",
			stats.ModelVersion, stats.Embedded, stats.Skipped, stats.Failed)
	}

	counts, err := indexService.VersionCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count embeddings: %w", err)
	}
	if len(counts) == 0 {
		cmd.Println("No embeddings stored.")
		return nil
	}
	versions := make([]string, 0, len(counts))
	for v := range counts {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	cmd.Println("Embeddings per model version:")
	for _, v := range versions {
		cmd.Printf("  %-32s %d\n", v, counts[v])
	}
	return nil
}
