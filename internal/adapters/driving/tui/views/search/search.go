// Package search provides the main search view for the TUI.
package search

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
)

// Result actions offered by the action menu.
const (
	ActionShowDetails = "Show details"
	ActionRetag       = "Re-tag"
	ActionCancel      = "Cancel"
)

// ActionMenu represents a simple action selection overlay.
type ActionMenu struct {
	actions  []string
	selected int
	visible  bool
	result   *domain.SearchResult
}

// View represents the search view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.SearchInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	classifier    driving.ClassificationService
	ctx           context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = input mode (typing), false = results mode (navigating)
	actionMenu *ActionMenu
	lastQuery  domain.Query
}

// NewView creates a new search view. A nil classifier hides re-tagging.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	searchService driving.SearchService,
	classifier driving.ClassificationService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewSearchInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		searchService: searchService,
		classifier:    classifier,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.BookmarkClassified:
		v.handleClassified(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	// Forward to input component
	var inputCmd tea.Cmd
	v.input, inputCmd = v.input.Update(msg)
	if inputCmd != nil {
		cmds = append(cmds, inputCmd)
	}

	// Forward to list component
	var listCmd tea.Cmd
	v.list, listCmd = v.list.Update(msg)
	if listCmd != nil {
		cmds = append(cmds, listCmd)
	}

	return v, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.actionMenu != nil && v.actionMenu.visible {
		return v.handleActionMenuKey(msg)
	}

	// Esc always signals to go back to menu
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	// Enter in input mode submits search
	if msg.Type == tea.KeyEnter && v.focusInput {
		query := v.input.Query()
		if query.IsEmpty() {
			return v, nil
		}
		return v, v.submit(query)
	}

	// Input mode: all keys go to input
	if v.focusInput {
		v.input, _ = v.input.Update(msg)
		return v, nil
	}

	// Results mode: handle Enter to open action menu
	if msg.Type == tea.KeyEnter {
		if result := v.list.SelectedResult(); result != nil {
			actions := []string{ActionShowDetails, ActionRetag, ActionCancel}
			if v.classifier == nil {
				actions = []string{ActionShowDetails, ActionCancel}
			}
			v.actionMenu = &ActionMenu{
				actions: actions,
				visible: true,
				result:  result,
			}
		}
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyUp:
		v.list.MoveUp()
		return v, nil
	case tea.KeyDown:
		v.list.MoveDown()
		return v, nil
	}

	switch msg.String() {
	case "k":
		v.list.MoveUp()
	case "j":
		v.list.MoveDown()
	case "n":
		// New search: clear input and focus it
		v.focusInput = true
		v.input.Focus()
		v.input.SetValue("")
	}

	return v, nil
}

// handleActionMenuKey processes keyboard input when action menu is visible.
func (v *View) handleActionMenuKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.actionMenu.selected > 0 {
			v.actionMenu.selected--
		}
	case "down", "j":
		if v.actionMenu.selected < len(v.actionMenu.actions)-1 {
			v.actionMenu.selected++
		}
	case "enter":
		action := v.actionMenu.actions[v.actionMenu.selected]
		result := v.actionMenu.result
		v.actionMenu = nil
		return v.executeAction(action, result)
	case "esc":
		v.actionMenu = nil
	}
	return v, nil
}

// executeAction performs the selected action on a search result.
func (v *View) executeAction(action string, result *domain.SearchResult) (*View, tea.Cmd) {
	if result == nil {
		return v, nil
	}

	id := result.Bookmark.ID
	switch action {
	case ActionShowDetails:
		return v, func() tea.Msg {
			return messages.BookmarkSelected{ID: id}
		}
	case ActionRetag:
		if v.classifier == nil {
			v.statusbar.SetMessage(ErrNoClassifier.Error())
			return v, nil
		}
		v.statusbar.SetState(status.StateTagging)
		v.statusbar.SetMessage("")
		return v, v.retag(id)
	}
	return v, nil
}

// retag re-runs classification for one bookmark.
func (v *View) retag(id int64) tea.Cmd {
	classifier := v.classifier
	ctx := v.ctx
	return func() tea.Msg {
		result, err := classifier.ClassifyByID(ctx, id, domain.ClassifyOptions{})
		return messages.BookmarkClassified{BookmarkID: id, Result: result, Err: err}
	}
}

// handleClassified reports a finished re-tag in the status bar.
func (v *View) handleClassified(msg messages.BookmarkClassified) {
	v.statusbar.SetState(status.StateResults)
	if msg.Err != nil {
		v.statusbar.SetMessage(fmt.Sprintf("Re-tag failed: %v", msg.Err))
		return
	}
	v.statusbar.SetMessage(TagSummary(msg.Result))
}

// TagSummary describes the outcome of a classification pass in one line.
func TagSummary(result *domain.ClassificationResult) string {
	if result == nil || len(result.Tags) == 0 {
		return "No tags assigned"
	}
	names := make([]string, len(result.Tags))
	for i, t := range result.Tags {
		names[i] = t.Name
	}
	summary := "Tagged: " + strings.Join(names, ", ")
	if len(result.Degraded) > 0 {
		summary += " (some tiers unavailable)"
	}
	return summary
}

// SearchFor replaces the input with raw and runs it.
func (v *View) SearchFor(raw string) tea.Cmd {
	v.input.SetValue(raw)
	query := v.input.Query()
	if query.IsEmpty() {
		return nil
	}
	return v.submit(query)
}

// submit moves to results mode and runs the query.
func (v *View) submit(query domain.Query) tea.Cmd {
	v.lastQuery = query
	v.statusbar.SetState(status.StateSearching)
	v.statusbar.SetMessage("")
	v.focusInput = false
	v.input.Blur()
	return v.performSearch(query)
}

// performSearch executes a search and returns results.
func (v *View) performSearch(query domain.Query) tea.Cmd {
	searchService := v.searchService
	ctx := v.ctx
	return func() tea.Msg {
		if searchService == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}

		results, err := searchService.Search(ctx, query)
		return messages.SearchCompleted{Results: results, Err: err}
	}
}

// handleSearchCompleted processes search results.
func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Results))

	v.focusInput = false
	v.input.Blur()
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("tagmark"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View())

	if v.actionMenu != nil && v.actionMenu.visible {
		sections = append(sections, "", v.renderActionMenu())
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderActionMenu renders the action menu overlay.
func (v *View) renderActionMenu() string {
	if v.actionMenu == nil {
		return ""
	}

	lines := make([]string, 0, len(v.actionMenu.actions))
	for i, action := range v.actionMenu.actions {
		if i == v.actionMenu.selected {
			lines = append(lines, v.styles.Selected.Render("> "+action))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+action))
		}
	}

	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Allocate space to components
	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10) // Reserve space for header, input, status
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the raw search input.
func (v *View) Query() string {
	return v.input.Value()
}

// LastQuery returns the most recently submitted query.
func (v *View) LastQuery() domain.Query {
	return v.lastQuery
}

// SetQuery sets the search input.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current search results.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// SelectedResult returns the currently selected result.
func (v *View) SelectedResult() *domain.SearchResult {
	return v.list.SelectedResult()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// ClearError clears the current error.
func (v *View) ClearError() {
	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.actionMenu = nil
	v.lastQuery = domain.Query{}
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// ActionMenuVisible reports whether the action menu is open.
func (v *View) ActionMenuVisible() bool {
	return v.actionMenu != nil && v.actionMenu.visible
}
