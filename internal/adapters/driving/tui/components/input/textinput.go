// Package input provides text input components for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// Query syntax markers.
const (
	// TagPrefix marks a required tag. Underscores stand for spaces.
	TagPrefix = "#"

	// SemanticOnlyPrefix at the start of the input skips the text signal.
	SemanticOnlyPrefix = "~"

	// TextOnlyPrefix at the start of the input skips the semantic signal.
	TextOnlyPrefix = "="
)

// SearchInput wraps a bubbles textinput with search-specific styling.
type SearchInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewSearchInput creates a new search input component.
func NewSearchInput(s *styles.Styles) *SearchInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "words  #tag  (~ meaning only, = words only)"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return &SearchInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the search input.
func (s *SearchInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (s *SearchInput) Update(msg tea.Msg) (*SearchInput, tea.Cmd) {
	var cmd tea.Cmd
	s.textinput, cmd = s.textinput.Update(msg)
	return s, cmd
}

// View renders the search input.
func (s *SearchInput) View() string {
	label := s.styles.Title.Render("Search: ")
	input := s.styles.InputField.Render(s.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, input)
}

// Value returns the current input value.
func (s *SearchInput) Value() string {
	return s.textinput.Value()
}

// Query parses the current input into a search query.
func (s *SearchInput) Query() domain.Query {
	return ParseQuery(s.textinput.Value())
}

// ParseQuery turns the input syntax into a hybrid query. Plain words feed
// both the text and semantic signals, #tag tokens become required tags.
func ParseQuery(raw string) domain.Query {
	raw = strings.TrimSpace(raw)
	useText, useSemantic := true, true
	switch {
	case strings.HasPrefix(raw, SemanticOnlyPrefix):
		useText = false
		raw = strings.TrimPrefix(raw, SemanticOnlyPrefix)
	case strings.HasPrefix(raw, TextOnlyPrefix):
		useSemantic = false
		raw = strings.TrimPrefix(raw, TextOnlyPrefix)
	}

	var q domain.Query
	words := make([]string, 0, 8)
	for _, tok := range strings.Fields(raw) {
		if name, ok := strings.CutPrefix(tok, TagPrefix); ok {
			if name = strings.ReplaceAll(name, "_", " "); strings.TrimSpace(name) != "" {
				q.Tags = append(q.Tags, name)
			}
			continue
		}
		words = append(words, tok)
	}

	text := strings.Join(words, " ")
	if useText {
		q.Text = text
	}
	if useSemantic {
		q.Semantic = text
	}
	return q
}

// SetValue sets the input value.
func (s *SearchInput) SetValue(value string) {
	s.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (s *SearchInput) Focus() tea.Cmd {
	return s.textinput.Focus()
}

// Blur removes focus from the input.
func (s *SearchInput) Blur() {
	s.textinput.Blur()
}

// Focused returns whether the input is focused.
func (s *SearchInput) Focused() bool {
	return s.textinput.Focused()
}

// SetWidth sets the width of the input.
func (s *SearchInput) SetWidth(width int) {
	s.width = width
	// Account for label and padding
	s.textinput.Width = max(width-10, 20)
}

// Width returns the current width.
func (s *SearchInput) Width() int {
	return s.width
}

// Reset clears the input.
func (s *SearchInput) Reset() {
	s.textinput.Reset()
}

// TagQuery returns the input text that searches for a single tag.
func TagQuery(tag string) string {
	return TagPrefix + strings.ReplaceAll(domain.NormalizeTagName(tag), " ", "_")
}
