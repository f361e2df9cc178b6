// Package tags provides the tag list view component for the TUI.
package tags

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
)

// ErrNoBookmarkService indicates that no bookmark service was provided.
var ErrNoBookmarkService = errors.New("bookmark service not available")

// View lists every tag with its usage count. Selecting a tag searches for
// the bookmarks holding it.
type View struct {
	styles    *styles.Styles
	bookmarks driving.BookmarkService
	ctx       context.Context

	all          []domain.TagCount
	shown        []domain.TagCount
	categories   []string
	category     int // index into categories, -1 for all
	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error
}

// NewView creates a new tags view.
func NewView(s *styles.Styles, bookmarks driving.BookmarkService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		bookmarks: bookmarks,
		ctx:       context.Background(),
		category:  -1,
		width:     80,
		height:    24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the tag list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadTags()
}

// loadTags returns a command that loads every tag with its count.
func (v *View) loadTags() tea.Cmd {
	bookmarks := v.bookmarks
	ctx := v.ctx
	return func() tea.Msg {
		if bookmarks == nil {
			return messages.TagsLoaded{Err: ErrNoBookmarkService}
		}
		tags, err := bookmarks.ListTags(ctx)
		return messages.TagsLoaded{Tags: tags, Err: err}
	}
}

// Update handles messages for the tags view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.TagsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.setTags(msg.Tags)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// setTags stores tags most used first and rebuilds the category filter.
func (v *View) setTags(tags []domain.TagCount) {
	v.all = append([]domain.TagCount(nil), tags...)
	sort.SliceStable(v.all, func(i, j int) bool {
		if v.all[i].Count != v.all[j].Count {
			return v.all[i].Count > v.all[j].Count
		}
		return v.all[i].Tag.Name < v.all[j].Tag.Name
	})

	seen := make(map[string]bool)
	v.categories = v.categories[:0]
	for _, t := range v.all {
		key := domain.CategoryKey(t.Tag.Category)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		v.categories = append(v.categories, domain.NormalizeCategory(t.Tag.Category))
	}
	sort.Strings(v.categories)
	if v.category >= len(v.categories) {
		v.category = -1
	}
	v.applyFilter()
}

// applyFilter narrows the shown tags to the selected category.
func (v *View) applyFilter() {
	v.selected = 0
	v.scrollOffset = 0
	if v.category < 0 {
		v.shown = v.all
		return
	}
	want := domain.CategoryKey(v.categories[v.category])
	v.shown = make([]domain.TagCount, 0, len(v.all))
	for _, t := range v.all {
		if domain.CategoryKey(t.Tag.Category) == want {
			v.shown = append(v.shown, t)
		}
	}
}

// handleKeyMsg handles key presses in list mode.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.shown)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "tab", "c":
		// Cycle all -> each category -> all
		if len(v.categories) > 0 {
			v.category++
			if v.category >= len(v.categories) {
				v.category = -1
			}
			v.applyFilter()
		}
	case "enter":
		if t := v.SelectedTag(); t != nil {
			name := t.Tag.Name
			return v, func() tea.Msg {
				return messages.TagSelected{Tag: name}
			}
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "r":
		v.loading = true
		return v, v.loadTags()
	}

	return v, nil
}

// adjustScroll adjusts the scroll offset to keep the selected item visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of items that can be displayed.
func (v *View) visibleItemCount() int {
	// Reserve lines for title, filter, help, and padding
	return max(v.height-9, 1)
}

// View renders the tags view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Tags (%d)", len(v.shown))))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Category: " + v.CategoryFilter()))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading tags..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	case len(v.shown) == 0:
		b.WriteString(v.styles.Muted.Render("No tags yet. Add bookmarks and classify them first."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	visibleItems := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.shown) && i < v.scrollOffset+visibleItems; i++ {
		b.WriteString(v.renderTag(i, &v.shown[i]))
		b.WriteString("\n")
	}

	if len(v.shown) > visibleItems {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleItems, len(v.shown)),
			len(v.shown))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderTag renders a single tag line.
func (v *View) renderTag(index int, t *domain.TagCount) string {
	nameWidth := max(v.width/2-4, 10)
	name := t.Tag.Name
	if len([]rune(name)) > nameWidth {
		name = string([]rune(name)[:nameWidth-3]) + "..."
	}
	origin := ""
	if t.UserCount > 0 {
		origin = fmt.Sprintf(" (%d user)", t.UserCount)
	}
	detail := fmt.Sprintf("%-14s %4d%s", t.Tag.Category, t.Count, origin)

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", nameWidth, name, detail))
	}
	return v.styles.Normal.Render(fmt.Sprintf("  %-*s  ", nameWidth, name)) +
		v.styles.Muted.Render(detail)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [enter] search tag  [tab] category  [r] reload  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Tags returns the tags currently shown.
func (v *View) Tags() []domain.TagCount {
	return v.shown
}

// CategoryFilter returns the active category, or "all".
func (v *View) CategoryFilter() string {
	if v.category < 0 || v.category >= len(v.categories) {
		return "all"
	}
	return v.categories[v.category]
}

// SelectedTag returns the highlighted tag, or nil if the list is empty.
func (v *View) SelectedTag() *domain.TagCount {
	if v.selected < 0 || v.selected >= len(v.shown) {
		return nil
	}
	return &v.shown[v.selected]
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
