// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driving"
)

// ErrNoSettingsService indicates that no settings service was provided.
var ErrNoSettingsService = errors.New("settings service not available")

// Key constants for key handling.
const (
	keyDown  = "down"
	keyEnter = "enter"
	keyEsc   = "esc"
)

// Row is one displayed setting. Rows without a Key are read-only and can
// only be changed in the config file.
type Row struct {
	Section string
	Label   string
	Key     string
	Value   string
}

// Editable reports whether the row can be changed from the view.
func (r Row) Editable() bool {
	return r.Key != ""
}

// View is the settings configuration view.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	settings *domain.AppSettings
	rows     []Row
	err      error
	notice   string

	selected     int
	scrollOffset int
	editing      bool
	editor       textinput.Model

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	editor := textinput.New()
	editor.CharLimit = 256
	editor.Width = 40

	return &View{
		styles:          s,
		settingsService: settingsService,
		editor:          editor,
		width:           80,
		height:          24,
	}
}

// Init loads the current settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that loads current settings.
func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		settings, err := svc.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

// saveSetting returns a command that persists one value.
func (v *View) saveSetting(key, raw string) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Key: key, Err: ErrNoSettingsService}
		}
		return messages.SettingsSaved{Key: key, Err: svc.Set(key, raw)}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.settings = msg.Settings
		v.rows = Rows(msg.Settings)
		v.selected = min(v.selected, max(len(v.rows)-1, 0))
		v.err = nil
		return v, nil

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.notice = fmt.Sprintf("Saved %s", msg.Key)
		return v, v.loadSettings()

	case tea.KeyMsg:
		if v.editing {
			return v.handleEditKeys(msg)
		}
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleKeyMsg handles key presses while browsing rows.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keyDown, "j":
		if v.selected < len(v.rows)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keyEnter:
		if v.selected >= len(v.rows) {
			return v, nil
		}
		row := v.rows[v.selected]
		if !row.Editable() {
			v.notice = "Edit this setting in the config file"
			return v, nil
		}
		v.editing = true
		v.notice = ""
		v.err = nil
		v.editor.SetValue(row.Value)
		v.editor.CursorEnd()
		return v, v.editor.Focus()
	}
	return v, nil
}

// handleEditKeys handles key presses while a value is being edited.
func (v *View) handleEditKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		v.editing = false
		v.editor.Blur()
		return v, nil
	case keyEnter:
		v.editing = false
		v.editor.Blur()
		row := v.rows[v.selected]
		return v, v.saveSetting(row.Key, strings.TrimSpace(v.editor.Value()))
	}

	var cmd tea.Cmd
	v.editor, cmd = v.editor.Update(msg)
	return v, cmd
}

// Rows flattens settings into displayable rows. Keys match the names the
// settings service accepts.
func Rows(s *domain.AppSettings) []Row {
	if s == nil {
		return nil
	}
	e := s.Engine
	return []Row{
		{"Classification", "Min confidence", "min_confidence", formatFloat(e.MinConfidence)},
		{"Classification", "Escalation threshold", "escalation_threshold", formatFloat(e.EscalationThreshold)},
		{"Classification", "Max concurrent passes", "max_concurrent_classifications", strconv.Itoa(e.MaxConcurrentClassifications)},
		{"Classification", "Per-tier timeout (ms)", "per_tier_timeout_ms", strconv.FormatInt(e.PerTierTimeout.Milliseconds(), 10)},
		{"Classification", "Required categories", "", listOrNone(e.RequiredCategories)},
		{"Classification", "Rules", "", strconv.Itoa(len(e.Rules))},
		{"Classification", "Labels", "", strconv.Itoa(len(e.Labels))},
		{"Search", "Text weight", "search_signal_weights.text", formatFloat(e.SearchSignalWeights.Text)},
		{"Search", "Tag weight", "search_signal_weights.tag", formatFloat(e.SearchSignalWeights.Tag)},
		{"Search", "Semantic weight", "search_signal_weights.semantic", formatFloat(e.SearchSignalWeights.Semantic)},
		{"Search", "Semantic top N", "semantic_top_n", strconv.Itoa(e.SemanticTopN)},
		{"Search", "Embedding model version", "embedding_model_version", e.EmbeddingModelVersion},
		{"Embedding", "Model", "embedding.model", s.Embedding.Model},
		{"Embedding", "Base URL", "embedding.base_url", s.Embedding.BaseURL},
		{"Embedding", "Dimensions", "embedding.dimensions", strconv.Itoa(s.Embedding.Dimensions)},
		{"LLM", "Model", "llm.model", s.LLM.Model},
		{"LLM", "Base URL", "llm.base_url", s.LLM.BaseURL},
		{"LLM", "Requests per second", "llm.requests_per_second", formatFloat(s.LLM.RequestsPerSecond)},
		{"Auto-tagging", "Interval (s)", "auto_tag.interval_seconds", strconv.FormatInt(int64(s.AutoTag.Interval/time.Second), 10)},
		{"Auto-tagging", "Batch size", "auto_tag.batch_size", strconv.Itoa(s.AutoTag.BatchSize)},
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// adjustScroll keeps the selected row visible.
func (v *View) adjustScroll() {
	visible := v.visibleRows()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

// visibleRows returns how many rows fit between the header and footer.
func (v *View) visibleRows() int {
	return max(v.height-10, 1)
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n")
	if v.settingsService != nil {
		b.WriteString(v.styles.Muted.Render(v.settingsService.Path()))
	}
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	section := ""
	visible := v.visibleRows()
	for i := v.scrollOffset; i < len(v.rows) && i < v.scrollOffset+visible; i++ {
		row := v.rows[i]
		if row.Section != section {
			section = row.Section
			b.WriteString(v.styles.Subtitle.Render(section))
			b.WriteString("\n")
		}
		b.WriteString(v.renderRow(i, row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderRow renders one setting, replacing its value with the editor while
// it is being changed.
func (v *View) renderRow(index int, row Row) string {
	value := row.Value
	if value == "" {
		value = "(not set)"
	}
	if !row.Editable() {
		value += v.styles.Muted.Render("  [config file]")
	}

	if index != v.selected {
		return v.styles.Normal.Render(fmt.Sprintf("  %-26s ", row.Label)) + value
	}
	if v.editing {
		return v.styles.Selected.Render(fmt.Sprintf("> %-26s", row.Label)) + " " + v.editor.View()
	}
	return v.styles.Selected.Render(fmt.Sprintf("> %-26s %s", row.Label, value))
}

func (v *View) renderHelp() string {
	if v.editing {
		return v.styles.Help.Render("[enter] save  [esc] cancel")
	}
	return v.styles.Help.Render("[j/k] navigate  [enter] edit  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.editor.Width = max(width-34, 10)
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.selected = 0
	v.scrollOffset = 0
	v.editing = false
	v.err = nil
	v.notice = ""
	v.editor.SetValue("")
	v.editor.Blur()
}

// Editing reports whether a value is being edited.
func (v *View) Editing() bool {
	return v.editing
}

// Notice returns the last informational message.
func (v *View) Notice() string {
	return v.notice
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
