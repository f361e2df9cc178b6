// Package bookmark provides the bookmark details view component for the TUI.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
)

// ErrNoBookmarkService indicates that no bookmark service was provided.
var ErrNoBookmarkService = errors.New("bookmark service not available")

const tagsHeader = "Tags:"

// View is the bookmark details view.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	bookmarks  driving.BookmarkService
	classifier driving.ClassificationService
	ctx        context.Context

	bookmark     *domain.Bookmark
	tags         []domain.TagAssignment
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	tagging      bool
	notice       string
	err          error
}

// NewView creates a new bookmark details view. A nil classifier disables
// re-tagging.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	bookmarks driving.BookmarkService,
	classifier driving.ClassificationService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:     s,
		keymap:     km,
		bookmarks:  bookmarks,
		classifier: classifier,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load clears the view and returns a command fetching bookmark id.
func (v *View) Load(id int64) tea.Cmd {
	v.bookmark = nil
	v.tags = nil
	v.scrollOffset = 0
	v.notice = ""
	v.err = nil
	v.loading = true
	return v.fetch(id)
}

func (v *View) fetch(id int64) tea.Cmd {
	bookmarks := v.bookmarks
	ctx := v.ctx
	return func() tea.Msg {
		if bookmarks == nil {
			return messages.BookmarkLoaded{Err: ErrNoBookmarkService}
		}
		b, err := bookmarks.Get(ctx, id)
		if err != nil {
			return messages.BookmarkLoaded{Err: err}
		}
		tags, err := bookmarks.Tags(ctx, id)
		return messages.BookmarkLoaded{Bookmark: b, Tags: tags, Err: err}
	}
}

// Update handles messages for the bookmark details view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.BookmarkLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.bookmark = msg.Bookmark
		v.tags = sortedTags(msg.Tags)
		v.err = nil
		return v, nil

	case messages.BookmarkClassified:
		v.tagging = false
		if msg.Err != nil {
			v.notice = fmt.Sprintf("Re-tag failed: %v", msg.Err)
			return v, nil
		}
		v.notice = fmt.Sprintf("Re-tagged with tiers %s", joinTiers(msg.Result))
		return v, v.fetch(msg.BookmarkID)

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Up):
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case key.Matches(msg, v.keymap.Down):
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case key.Matches(msg, v.keymap.Classify):
		return v, v.retag(false)
	case key.Matches(msg, v.keymap.DeepClassify):
		return v, v.retag(true)
	case key.Matches(msg, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewSearch}
		}
	}

	return v, nil
}

// retag runs a classification pass for the shown bookmark.
func (v *View) retag(deep bool) tea.Cmd {
	if v.bookmark == nil || v.tagging {
		return nil
	}
	if v.classifier == nil {
		v.notice = "Re-tagging is not configured"
		return nil
	}
	v.tagging = true
	v.notice = ""
	classifier := v.classifier
	ctx := v.ctx
	id := v.bookmark.ID
	return func() tea.Msg {
		result, err := classifier.ClassifyByID(ctx, id, domain.ClassifyOptions{Deep: deep})
		return messages.BookmarkClassified{BookmarkID: id, Result: result, Err: err}
	}
}

// sortedTags orders assignments by confidence, highest first, then name.
func sortedTags(tags []domain.TagAssignment) []domain.TagAssignment {
	out := append([]domain.TagAssignment(nil), tags...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Tag.Name < out[j].Tag.Name
	})
	return out
}

func joinTiers(result *domain.ClassificationResult) string {
	if result == nil || len(result.TiersRun) == 0 {
		return "none"
	}
	names := make([]string, len(result.TiersRun))
	for i, t := range result.TiersRun {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Reserve lines for title, separator, help, and padding
	return max(v.height-7, 1)
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	return max(len(v.buildContent())-v.visibleLines(), 0)
}

// buildContent builds the content lines for display.
func (v *View) buildContent() []string {
	if v.bookmark == nil {
		return nil
	}
	b := v.bookmark

	lines := []string{
		formatField("ID", fmt.Sprintf("%d", b.ID)),
		formatField("Title", b.Title),
		formatField("URL", b.URL),
	}
	if b.Source != "" {
		lines = append(lines, formatField("Source", b.Source))
	}
	if !b.DateAdded.IsZero() {
		lines = append(lines, formatField("Added", b.DateAdded.Local().Format("2006-01-02 15:04:05")))
	}
	if desc := strings.TrimSpace(b.Description); desc != "" {
		lines = append(lines, formatField("Description", truncate(desc, max(v.width-16, 20))))
	}

	lines = append(lines, "", tagsHeader)
	if len(v.tags) == 0 {
		lines = append(lines, "  (unclassified)")
		return lines
	}
	for _, t := range v.tags {
		lines = append(lines, v.formatTag(t))
	}
	return lines
}

// formatTag renders one assignment as "  name  category  confidence".
func (v *View) formatTag(t domain.TagAssignment) string {
	origin := ""
	if !t.AutoGenerated {
		origin = " (user)"
	}
	return "  " + v.styles.Tag.Render(fmt.Sprintf("%-24s", t.Tag.Name)) + " " +
		v.styles.Category.Render(fmt.Sprintf("%-14s", t.Tag.Category)) + " " +
		v.styles.ConfidenceStyle(t.Confidence).Render(fmt.Sprintf("%.2f", t.Confidence)) +
		v.styles.Muted.Render(origin)
}

// formatField formats a field for display.
func formatField(label, value string) string {
	return fmt.Sprintf("%-12s %s", label+":", value)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// View renders the bookmark details view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Bookmark"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 0), 60)))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading bookmark..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	case v.bookmark == nil:
		b.WriteString(v.styles.Muted.Render("No bookmark selected"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	lines := v.buildContent()
	visible := v.visibleLines()
	for i := v.scrollOffset; i < len(lines) && i < v.scrollOffset+visible; i++ {
		line := lines[i]
		switch {
		case line == tagsHeader:
			b.WriteString(v.styles.Subtitle.Render(line))
		case strings.HasPrefix(line, "  "):
			b.WriteString(line)
		default:
			if label, value, ok := strings.Cut(line, ":"); ok {
				b.WriteString(v.styles.Subtitle.Render(label + ":"))
				b.WriteString(v.styles.Normal.Render(value))
			} else {
				b.WriteString(v.styles.Normal.Render(line))
			}
		}
		b.WriteString("\n")
	}

	if len(lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1, min(v.scrollOffset+visible, len(lines)), len(lines))))
	}

	b.WriteString("\n")
	switch {
	case v.tagging:
		b.WriteString(v.styles.Muted.Render("Classifying..."))
	case v.notice != "":
		b.WriteString(v.styles.Warning.Render(v.notice))
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	bindings := v.keymap.BookmarkHelp()
	hints := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		hints = append(hints, fmt.Sprintf("[%s] %s", h.Key, h.Desc))
	}
	return v.styles.Help.Render(strings.Join(hints, "  "))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Bookmark returns the shown bookmark.
func (v *View) Bookmark() *domain.Bookmark {
	return v.bookmark
}

// Tags returns the shown tag assignments, highest confidence first.
func (v *View) Tags() []domain.TagAssignment {
	return v.tags
}

// Notice returns the last re-tag outcome.
func (v *View) Notice() string {
	return v.notice
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
