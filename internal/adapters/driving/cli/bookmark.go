package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// dateLayouts are accepted by the --from and --to flags.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

var (
	addTitle       string
	addDescription string
	addContent     string
	addSource      string
	addTags        []string
	addNoClassify  bool
	addDeep        bool

	listFrom         string
	listTo           string
	listSource       string
	listUnclassified bool
	listLimit        int
	listOffset       int
	listJSON         bool

	tagCategory string
)

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Add a bookmark and tag it",
	Long: `Stores a bookmark and runs a classification pass for it.

Tags given with --tag are kept as user tags and are never replaced by
classification. Use name:category to give a tag a category.

Examples:
  tagmark add https://go.dev/blog/pipelines --title "Go pipelines"
  tagmark add https://example.com/bread --tag baking:Food --no-classify`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarks, newest first",
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get [bookmark-id]",
	Short: "Show a bookmark and its tags",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [bookmark-id]",
	Short: "Delete a bookmark with its tags and embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var tagCmd = &cobra.Command{
	Use:   "tag [bookmark-id] [tag]",
	Short: "Add a user tag to a bookmark",
	Args:  cobra.ExactArgs(2),
	RunE:  runTag,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags by usage",
	RunE:  runTags,
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "bookmark title, defaults to the host")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "short description")
	addCmd.Flags().StringVar(&addContent, "content", "", "page text or HTML used for classification")
	addCmd.Flags().StringVar(&addSource, "source", "cli", "where the bookmark came from")
	addCmd.Flags().StringArrayVar(&addTags, "tag", nil, "user tag as name or name:category (repeatable)")
	addCmd.Flags().BoolVar(&addNoClassify, "no-classify", false, "store without classifying")
	addCmd.Flags().BoolVar(&addDeep, "deep", false, "run every classification tier")

	listCmd.Flags().StringVar(&listFrom, "from", "", "only bookmarks added at or after this date")
	listCmd.Flags().StringVar(&listTo, "to", "", "only bookmarks added before this date")
	listCmd.Flags().StringVar(&listSource, "source", "", "only bookmarks from this source")
	listCmd.Flags().BoolVar(&listUnclassified, "unclassified", false, "only bookmarks without tags")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of bookmarks")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "number of bookmarks to skip")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output bookmarks as JSON")

	tagCmd.Flags().StringVarP(&tagCategory, "category", "c", "", "tag category")

	rootCmd.AddCommand(addCmd, listCmd, getCmd, deleteCmd, tagCmd, tagsCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if bookmarkService == nil {
		return errors.New("bookmark service not configured")
	}
	ctx := commandContext(cmd)

	b := domain.Bookmark{
		URL:            args[0],
		Title:          addTitle,
		Description:    addDescription,
		ContentSnippet: addContent,
		Source:         addSource,
	}
	if b.Title == "" {
		b.Title = b.Host()
	}
	added, err := bookmarkService.Add(ctx, b)
	if err != nil {
		return fmt.Errorf("failed to add bookmark: %w", err)
	}
	cmd.Printf("Added bookmark %d: %s\n", added.ID, added.URL)

	for _, raw := range addTags {
		name, category := splitTag(raw)
		if err := bookmarkService.AddUserTag(ctx, added.ID, name, category); err != nil {
			return fmt.Errorf("failed to add tag %q: %w", raw, err)
		}
	}

	if addNoClassify || classifier == nil {
		return nil
	}
	result, err := classifier.ClassifyAndTag(ctx, *added, domain.ClassifyOptions{Deep: addDeep})
	if err != nil {
		return fmt.Errorf("failed to classify bookmark %d: %w", added.ID, err)
	}
	printClassification(cmd, result)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if bookmarkService == nil {
		return errors.New("bookmark service not configured")
	}

	from, err := parseDate(listFrom)
	if err != nil {
		return err
	}
	to, err := parseDate(listTo)
	if err != nil {
		return err
	}

	bookmarks, err := bookmarkService.List(commandContext(cmd), domain.BookmarkFilter{
		From:         from,
		To:           to,
		Source:       listSource,
		Unclassified: listUnclassified,
		Offset:       listOffset,
		Limit:        listLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list bookmarks: %w", err)
	}

	if listJSON {
		return printJSON(cmd, bookmarks)
	}
	if len(bookmarks) == 0 {
		cmd.Println("No bookmarks found.")
		return nil
	}
	for i := range bookmarks {
		b := &bookmarks[i]
		cmd.Printf("  %4d  %s  %s\n", b.ID, b.DateAdded.Local().Format("2006-01-02"), displayTitle(b))
		cmd.Printf("        %s\n", b.URL)
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	if bookmarkService == nil {
		return errors.New("bookmark service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	b, err := bookmarkService.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get bookmark %d: %w", id, err)
	}
	tags, err := bookmarkService.Tags(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get tags for bookmark %d: %w", id, err)
	}

	cmd.Printf("ID:          %d\n", b.ID)
	cmd.Printf("Title:       %s\n", displayTitle(b))
	cmd.Printf("URL:         %s\n", b.URL)
	if b.Source != "" {
		cmd.Printf("Source:      %s\n", b.Source)
	}
	cmd.Printf("Added:       %s\n", b.DateAdded.Local().Format("2006-01-02 15:04:05"))
	if b.Description != "" {
		cmd.Printf("Description: %s\n", b.Description)
	}
	cmd.Println()
	printAssignments(cmd, tags)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if bookmarkService == nil {
		return errors.New("bookmark service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := bookmarkService.Delete(commandContext(cmd), id); err != nil {
		return fmt.Errorf("failed to delete bookmark %d: %w", id, err)
	}
	cmd.Printf("Deleted bookmark %d\n", id)
	return nil
}

func runTag(cmd *cobra.Command, args []string) error {
	if bookmarkService == nil {
		return errors.New("bookmark service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	name, category := splitTag(args[1])
	if tagCategory != "" {
		category = tagCategory
	}
	if err := bookmarkService.AddUserTag(commandContext(cmd), id, name, category); err != nil {
		return fmt.Errorf("failed to tag bookmark %d: %w", id, err)
	}
	cmd.Printf("Tagged bookmark %d with %s\n", id, domain.NormalizeTagName(name))
	return nil
}

func runTags(cmd *cobra.Command, _ []string) error {
	if bookmarkService == nil {
		return errors.New("bookmark service not configured")
	}
	tags, err := bookmarkService.ListTags(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}
	if len(tags) == 0 {
		cmd.Println("No tags yet.")
		return nil
	}

	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag.Name < tags[j].Tag.Name
	})
	for _, t := range tags {
		line := fmt.Sprintf("  %5d  %s", t.Count, t.Tag.Name)
		if t.Tag.Category != "" {
			line += fmt.Sprintf(" [%s]", t.Tag.Category)
		}
		cmd.Println(line)
	}
	return nil
}

// printAssignments prints tags by confidence.
func printAssignments(cmd *cobra.Command, tags []domain.TagAssignment) {
	if len(tags) == 0 {
		cmd.Println("Tags: (unclassified)")
		return
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Confidence > tags[j].Confidence })
	cmd.Println("Tags:")
	for _, t := range tags {
		line := fmt.Sprintf("  %-24s %.2f", t.Tag.Name, t.Confidence)
		if t.Tag.Category != "" {
			line += "  " + t.Tag.Category
		}
		if !t.AutoGenerated {
			line += "  (user)"
		}
		cmd.Println(line)
	}
}

// printClassification prints the outcome of one pass.
func printClassification(cmd *cobra.Command, r *domain.ClassificationResult) {
	if r == nil {
		return
	}
	if r.Unclassified || len(r.Tags) == 0 {
		cmd.Printf("Bookmark %d: no tags above the confidence threshold\n", r.BookmarkID)
	} else {
		names := make([]string, len(r.Tags))
		for i, t := range r.Tags {
			names[i] = fmt.Sprintf("%s (%.2f, %s)", t.Name, t.Confidence, t.Tier)
		}
		cmd.Printf("Bookmark %d: %s\n", r.BookmarkID, strings.Join(names, ", "))
	}
	if len(r.Degraded) > 0 {
		tiers := make([]string, len(r.Degraded))
		for i, t := range r.Degraded {
			tiers[i] = string(t)
		}
		cmd.Printf("  unavailable tiers: %s\n", strings.Join(tiers, ", "))
	}
	if r.EmbedError != "" {
		cmd.Printf("  embedding not stored, run 'tagmark reindex': %s\n", r.EmbedError)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func displayTitle(b *domain.Bookmark) string {
	if b.Title != "" {
		return b.Title
	}
	return b.Host()
}

// splitTag splits name:category. A tag without a colon has no category.
func splitTag(raw string) (name, category string) {
	name, category, _ = strings.Cut(raw, ":")
	return strings.TrimSpace(name), strings.TrimSpace(category)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bookmark id %q", domain.ErrInvalidInput, raw)
	}
	return id, nil
}

// parseDate accepts an RFC 3339 timestamp or a local date. Empty means unset.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q, use YYYY-MM-DD", domain.ErrInvalidInput, raw)
}

// commandContext returns the command's context, or Background when it
// runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
