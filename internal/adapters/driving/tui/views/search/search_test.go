package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// MockSearchService implements driving.SearchService for testing.
type MockSearchService struct {
	SearchFunc func(ctx context.Context, query domain.Query) ([]domain.SearchResult, error)
}

func (m *MockSearchService) Search(ctx context.Context, query domain.Query) ([]domain.SearchResult, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return []domain.SearchResult{}, nil
}

// MockClassifier implements driving.ClassificationService for testing.
type MockClassifier struct {
	ClassifyByIDFunc func(ctx context.Context, id int64, opts domain.ClassifyOptions) (*domain.ClassificationResult, error)
}

func (m *MockClassifier) ClassifyAndTag(
	ctx context.Context, b domain.Bookmark, opts domain.ClassifyOptions,
) (*domain.ClassificationResult, error) {
	return m.ClassifyByID(ctx, b.ID, opts)
}

func (m *MockClassifier) ClassifyByID(
	ctx context.Context, id int64, opts domain.ClassifyOptions,
) (*domain.ClassificationResult, error) {
	if m.ClassifyByIDFunc != nil {
		return m.ClassifyByIDFunc(ctx, id, opts)
	}
	return &domain.ClassificationResult{BookmarkID: id}, nil
}

func (m *MockClassifier) ClassifyBatch(context.Context, []int64, domain.ClassifyOptions) []domain.BatchOutcome {
	return nil
}

// Helper function to create test search results.
func testSearchResults() []domain.SearchResult {
	return []domain.SearchResult{
		{
			Bookmark: domain.Bookmark{ID: 1, Title: "Asyncio patterns", URL: "https://example.com/asyncio"},
			Score:    0.95,
		},
		{
			Bookmark: domain.Bookmark{ID: 2, Title: "Sourdough starter", URL: "https://example.com/bread"},
			Score:    0.85,
		},
	}
}

// resultsView returns a view in results mode holding testSearchResults.
func resultsView(classifier *MockClassifier) *View {
	var view *View
	if classifier != nil {
		view = NewView(nil, nil, &MockSearchService{}, classifier)
	} else {
		view = NewView(nil, nil, &MockSearchService{}, nil)
	}
	view.SetDimensions(80, 24)
	view.Update(messages.SearchCompleted{Results: testSearchResults()})
	return view
}

func TestNewView(t *testing.T) {
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	view := NewView(s, km, &MockSearchService{}, nil)

	require.NotNil(t, view)
	assert.False(t, view.Ready())
	assert.Equal(t, "", view.Query())
	assert.True(t, view.InputFocused())
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
}

func TestView_WithContext(t *testing.T) {
	view := NewView(nil, nil, nil, nil)
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	result := view.WithContext(ctx)

	assert.Equal(t, view, result)
	assert.Equal(t, ctx, view.ctx)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	updated, cmd := view.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.Ready())
	assert.Equal(t, 100, view.Width())
	assert.Equal(t, 30, view.Height())
}

func TestView_Update_SearchCompleted(t *testing.T) {
	view := NewView(nil, nil, nil, nil)
	view.SetDimensions(80, 24)

	_, cmd := view.Update(messages.SearchCompleted{Results: testSearchResults()})

	assert.Nil(t, cmd)
	assert.Len(t, view.Results(), 2)
	assert.False(t, view.InputFocused())
	assert.NoError(t, view.Err())
}

func TestView_Update_SearchCompleted_WithError(t *testing.T) {
	view := NewView(nil, nil, nil, nil)
	view.SetDimensions(80, 24)

	view.Update(messages.SearchCompleted{Err: domain.ErrInvalidQuery})

	assert.ErrorIs(t, view.Err(), domain.ErrInvalidQuery)
	assert.Contains(t, view.View(), "Error:")
}

func TestView_Update_ErrorOccurred(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	view.Update(messages.ErrorOccurred{Err: errors.New("something went wrong")})

	assert.EqualError(t, view.Err(), "something went wrong")
}

func TestView_Update_KeyEnter_ParsesQuery(t *testing.T) {
	var got domain.Query
	mock := &MockSearchService{
		SearchFunc: func(_ context.Context, query domain.Query) ([]domain.SearchResult, error) {
			got = query
			return nil, nil
		},
	}
	view := NewView(nil, nil, mock, nil)
	view.SetQuery("asyncio #python")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.IsType(t, messages.SearchCompleted{}, cmd())
	assert.Equal(t, "asyncio", got.Text)
	assert.Equal(t, "asyncio", got.Semantic)
	assert.Equal(t, []string{"python"}, got.Tags)
	assert.Equal(t, got, view.LastQuery())
	assert.False(t, view.InputFocused())
}

func TestView_Update_KeyEnter_EmptyQuery(t *testing.T) {
	view := NewView(nil, nil, &MockSearchService{}, nil)
	view.SetQuery("  ")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, view.InputFocused())
}

func TestView_PerformSearch_NoService(t *testing.T) {
	view := NewView(nil, nil, nil, nil)
	view.SetQuery("anything")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, msg.Err, ErrNoSearchService)
}

func TestView_SearchFor(t *testing.T) {
	var got domain.Query
	mock := &MockSearchService{
		SearchFunc: func(_ context.Context, query domain.Query) ([]domain.SearchResult, error) {
			got = query
			return nil, nil
		},
	}
	view := NewView(nil, nil, mock, nil)

	cmd := view.SearchFor("#machine_learning")

	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"machine learning"}, got.Tags)
	assert.Equal(t, "#machine_learning", view.Query())
	assert.Nil(t, view.SearchFor(""))
}

func TestView_Update_KeyEsc_BackToMenu(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	changed, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewMenu, changed.View)
}

func TestView_Update_KeyN_NewSearch(t *testing.T) {
	view := resultsView(nil)
	view.SetQuery("old query")

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.True(t, view.InputFocused())
	assert.Equal(t, "", view.Query())
}

func TestView_ResultsNavigation(t *testing.T) {
	view := resultsView(nil)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, view.SelectedIndex())

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.SelectedIndex(), "stays on last result")

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.SelectedIndex())
}

func TestView_Navigation_OnlyWorksInResultsMode(t *testing.T) {
	view := NewView(nil, nil, nil, nil)
	view.list.SetResults(testSearchResults())

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})

	assert.Equal(t, 0, view.SelectedIndex())
	assert.Equal(t, "j", view.Query())
}

func TestView_ActionMenu_Actions(t *testing.T) {
	t.Run("with classifier", func(t *testing.T) {
		view := resultsView(&MockClassifier{})

		view.Update(tea.KeyMsg{Type: tea.KeyEnter})

		require.True(t, view.ActionMenuVisible())
		assert.Equal(t, []string{ActionShowDetails, ActionRetag, ActionCancel}, view.actionMenu.actions)
	})

	t.Run("without classifier", func(t *testing.T) {
		view := resultsView(nil)

		view.Update(tea.KeyMsg{Type: tea.KeyEnter})

		require.True(t, view.ActionMenuVisible())
		assert.Equal(t, []string{ActionShowDetails, ActionCancel}, view.actionMenu.actions)
	})

	t.Run("no results", func(t *testing.T) {
		view := NewView(nil, nil, nil, nil)
		view.focusInput = false

		view.Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.False(t, view.ActionMenuVisible())
	})
}

func TestView_ActionMenu_ShowDetails(t *testing.T) {
	view := resultsView(nil)
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.BookmarkSelected{ID: 2}, cmd())
	assert.False(t, view.ActionMenuVisible())
}

func TestView_ActionMenu_Retag(t *testing.T) {
	var gotID int64
	classifier := &MockClassifier{
		ClassifyByIDFunc: func(_ context.Context, id int64, _ domain.ClassifyOptions) (*domain.ClassificationResult, error) {
			gotID = id
			return &domain.ClassificationResult{
				BookmarkID: id,
				Tags:       []domain.ScoredTag{{Name: "python"}, {Name: "async"}},
			}, nil
		},
	}
	view := resultsView(classifier)
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, int64(1), gotID)

	view.Update(msg)
	assert.Equal(t, "Tagged: python, async", view.StatusMessage())
}

func TestView_ActionMenu_RetagFailure(t *testing.T) {
	view := resultsView(nil)

	view.Update(messages.BookmarkClassified{BookmarkID: 1, Err: domain.ErrContentUnavailable})

	assert.Contains(t, view.StatusMessage(), "Re-tag failed")
}

func TestView_ActionMenu_EscapeAndCancel(t *testing.T) {
	view := resultsView(nil)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, view.ActionMenuVisible())

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, view.ActionMenuVisible())
}

func TestView_ExecuteAction_NilResult(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	_, cmd := view.executeAction(ActionShowDetails, nil)

	assert.Nil(t, cmd)
}

func TestTagSummary(t *testing.T) {
	assert.Equal(t, "No tags assigned", TagSummary(nil))
	assert.Equal(t, "No tags assigned", TagSummary(&domain.ClassificationResult{}))
	assert.Equal(t, "Tagged: go (some tiers unavailable)", TagSummary(&domain.ClassificationResult{
		Tags:     []domain.ScoredTag{{Name: "go"}},
		Degraded: []domain.TierName{domain.TierHeavyweight},
	}))
}

func TestView_View(t *testing.T) {
	view := NewView(nil, nil, nil, nil)
	assert.Equal(t, "Initialising...", view.View())

	view = resultsView(nil)
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	out := view.View()
	assert.Contains(t, out, "tagmark")
	assert.Contains(t, out, "Asyncio patterns")
	assert.Contains(t, out, ActionShowDetails)
}

func TestView_Reset(t *testing.T) {
	view := resultsView(nil)
	view.SetQuery("something")
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	view.Reset()

	assert.True(t, view.InputFocused())
	assert.Equal(t, "", view.Query())
	assert.Empty(t, view.Results())
	assert.False(t, view.ActionMenuVisible())
	assert.True(t, view.LastQuery().IsEmpty())
}
