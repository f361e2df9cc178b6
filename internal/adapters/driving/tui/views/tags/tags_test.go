package tags

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// mockBookmarks implements driving.BookmarkService for testing.
type mockBookmarks struct {
	tags []domain.TagCount
	err  error
}

func (m *mockBookmarks) Add(_ context.Context, b domain.Bookmark) (*domain.Bookmark, error) {
	return &b, nil
}

func (m *mockBookmarks) Get(context.Context, int64) (*domain.Bookmark, error) {
	return nil, domain.ErrNotFound
}

func (m *mockBookmarks) List(context.Context, domain.BookmarkFilter) ([]domain.Bookmark, error) {
	return nil, nil
}

func (m *mockBookmarks) Delete(context.Context, int64) error { return nil }

func (m *mockBookmarks) Tags(context.Context, int64) ([]domain.TagAssignment, error) {
	return nil, nil
}

func (m *mockBookmarks) AddUserTag(context.Context, int64, string, string) error { return nil }

func (m *mockBookmarks) ListTags(context.Context) ([]domain.TagCount, error) {
	return m.tags, m.err
}

func testTags() []domain.TagCount {
	return []domain.TagCount{
		{Tag: domain.Tag{ID: 1, Name: "python", Category: "tech"}, Count: 4},
		{Tag: domain.Tag{ID: 2, Name: "sourdough", Category: "Food"}, Count: 2},
		{Tag: domain.Tag{ID: 3, Name: "go", Category: "Tech"}, Count: 9},
		{Tag: domain.Tag{ID: 4, Name: "to read", Category: "General"}, Count: 2, UserCount: 2},
	}
}

// loadedView returns a view that has loaded testTags.
func loadedView(t *testing.T) *View {
	t.Helper()
	view := NewView(nil, &mockBookmarks{tags: testTags()})
	view.SetDimensions(100, 30)
	cmd := view.Init()
	require.NotNil(t, cmd)
	view.Update(cmd())
	require.NoError(t, view.Err())
	return view
}

func names(tags []domain.TagCount) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Tag.Name
	}
	return out
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Equal(t, "all", view.CategoryFilter())
	assert.Nil(t, view.SelectedTag())
}

func TestView_Init_SortsByCount(t *testing.T) {
	view := loadedView(t)

	assert.Equal(t, []string{"go", "python", "sourdough", "to read"}, names(view.Tags()))
}

func TestView_Init_NoService(t *testing.T) {
	view := NewView(nil, nil)

	msg := view.Init()()

	loaded, ok := msg.(messages.TagsLoaded)
	require.True(t, ok)
	assert.ErrorIs(t, loaded.Err, ErrNoBookmarkService)
}

func TestView_LoadError(t *testing.T) {
	view := NewView(nil, &mockBookmarks{err: errors.New("db locked")})
	view.SetDimensions(80, 24)

	view.Update(view.Init()())

	assert.EqualError(t, view.Err(), "db locked")
	assert.Contains(t, view.View(), "Error: db locked")
}

func TestView_CategoryFilter(t *testing.T) {
	view := loadedView(t)
	tab := tea.KeyMsg{Type: tea.KeyTab}

	view.Update(tab)
	assert.Equal(t, "Food", view.CategoryFilter())
	assert.Equal(t, []string{"sourdough"}, names(view.Tags()))

	view.Update(tab)
	assert.Equal(t, "General", view.CategoryFilter())

	view.Update(tab)
	assert.Equal(t, "Tech", view.CategoryFilter())
	assert.Equal(t, []string{"go", "python"}, names(view.Tags()), "categories compare case-insensitively")

	view.Update(tab)
	assert.Equal(t, "all", view.CategoryFilter())
	assert.Len(t, view.Tags(), 4)
}

func TestView_Enter_SelectsTag(t *testing.T) {
	view := loadedView(t)
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.TagSelected{Tag: "python"}, cmd())
}

func TestView_Enter_Empty(t *testing.T) {
	view := NewView(nil, &mockBookmarks{})
	view.Update(view.Init()())

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Contains(t, view.View(), "No tags yet")
}

func TestView_Navigation(t *testing.T) {
	view := loadedView(t)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, "go", view.SelectedTag().Tag.Name, "stays at top")

	for range 10 {
		view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	}
	assert.Equal(t, "to read", view.SelectedTag().Tag.Name, "stops at bottom")
}

func TestView_Scrolls(t *testing.T) {
	view := loadedView(t)
	view.SetDimensions(100, 11) // two visible rows

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	assert.Equal(t, 1, view.scrollOffset)
	assert.Contains(t, view.View(), "[2-3 of 4]")
}

func TestView_Reload(t *testing.T) {
	bookmarks := &mockBookmarks{tags: testTags()}
	view := NewView(nil, bookmarks)
	view.Update(view.Init()())
	bookmarks.tags = bookmarks.tags[:1]

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	view.Update(cmd())

	assert.Equal(t, []string{"python"}, names(view.Tags()))
}

func TestView_Esc_BackToMenu(t *testing.T) {
	view := loadedView(t)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_View(t *testing.T) {
	view := loadedView(t)

	out := view.View()

	assert.Contains(t, out, "Tags (4)")
	assert.Contains(t, out, "Category: all")
	assert.Contains(t, out, "sourdough")
	assert.Contains(t, out, "(2 user)")
}
