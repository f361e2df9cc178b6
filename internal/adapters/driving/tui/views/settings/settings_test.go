package settings

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/services"
)

// MockSettingsService is a mock implementation of driving.SettingsService.
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppSettings), args.Error(1)
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	args := m.Called()
	return args.Get(0).(domain.AppSettings)
}

func (m *MockSettingsService) Set(key, raw string) error {
	args := m.Called(key, raw)
	return args.Error(0)
}

func (m *MockSettingsService) Path() string {
	return "/home/test/.tagmark/config.toml"
}

// Helper function to create test settings.
func testSettings() *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Engine.RequiredCategories = []string{"Tech", "Food"}
	return &s
}

// loadedView returns a view that has loaded settings from svc.
func loadedView(t *testing.T, svc *MockSettingsService) *View {
	t.Helper()
	svc.On("Get").Return(testSettings(), nil)
	view := NewView(nil, svc)
	view.SetDimensions(100, 60)
	view.Update(view.Init()())
	require.NoError(t, view.Err())
	return view
}

// selectKey moves the selection to the row holding key.
func selectKey(t *testing.T, view *View, key string) {
	t.Helper()
	for i, r := range view.rows {
		if r.Key == key {
			view.selected = i
			return
		}
	}
	t.Fatalf("no row for %s", key)
}

func typeText(view *View, s string) {
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.False(t, view.Editing())
}

func TestView_Init_NoService(t *testing.T) {
	view := NewView(nil, nil)

	msg := view.Init()()

	loaded, ok := msg.(messages.SettingsLoaded)
	require.True(t, ok)
	assert.ErrorIs(t, loaded.Err, ErrNoSettingsService)
}

func TestView_Init_InvalidConfig(t *testing.T) {
	svc := &MockSettingsService{}
	svc.On("Get").Return(nil, domain.ErrInvalidConfig)
	view := NewView(nil, svc)

	view.Update(view.Init()())

	assert.ErrorIs(t, view.Err(), domain.ErrInvalidConfig)
	assert.Contains(t, view.View(), "Error:")
}

func TestRows(t *testing.T) {
	assert.Nil(t, Rows(nil))

	s := testSettings()
	s.Engine.PerTierTimeout = 1500 * time.Millisecond
	s.AutoTag.Interval = 2 * time.Minute
	rows := Rows(s)

	values := make(map[string]string)
	for _, r := range rows {
		values[r.Label] = r.Value
	}
	assert.Equal(t, "0.3", values["Min confidence"])
	assert.Equal(t, "1500", values["Per-tier timeout (ms)"])
	assert.Equal(t, "120", values["Interval (s)"])
	assert.Equal(t, "Tech, Food", values["Required categories"])
	assert.Equal(t, domain.DefaultEmbeddingModel, values["Embedding model version"])
}

func TestRows_KeysAreSettable(t *testing.T) {
	settable := make(map[string]bool)
	for _, k := range services.SettableKeys() {
		settable[k] = true
	}

	editable := 0
	for _, r := range Rows(testSettings()) {
		if r.Editable() {
			editable++
			assert.True(t, settable[r.Key], "row %q uses unknown key %q", r.Label, r.Key)
		}
	}
	assert.Equal(t, len(settable), editable, "every settable key has a row")
}

func TestView_EditAndSave(t *testing.T) {
	svc := &MockSettingsService{}
	svc.On("Set", "min_confidence", "0.45").Return(nil)
	view := loadedView(t, svc)
	selectKey(t, view, "min_confidence")

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, view.Editing())
	view.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	typeText(view, "45")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, view.Editing())

	_, reload := view.Update(cmd())
	require.NotNil(t, reload)
	assert.Equal(t, "Saved min_confidence", view.Notice())
	svc.AssertExpectations(t)
}

func TestView_SaveRejected(t *testing.T) {
	svc := &MockSettingsService{}
	svc.On("Set", "llm.requests_per_second", "fast").Return(domain.ErrInvalidInput)
	view := loadedView(t, svc)
	selectKey(t, view, "llm.requests_per_second")

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.editor.SetValue("fast")
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, reload := view.Update(cmd())

	assert.Nil(t, reload)
	assert.ErrorIs(t, view.Err(), domain.ErrInvalidInput)
}

func TestView_EditCancel(t *testing.T) {
	svc := &MockSettingsService{}
	view := loadedView(t, svc)
	selectKey(t, view, "llm.model")

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeText(view, "x")
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.False(t, view.Editing())
	svc.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestView_ReadOnlyRow(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})
	for i, r := range view.rows {
		if r.Label == "Rules" {
			view.selected = i
		}
	}

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, view.Editing())
	assert.Equal(t, "Edit this setting in the config file", view.Notice())
}

func TestView_Navigation(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, view.selected)

	for range 50 {
		view.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, len(view.rows)-1, view.selected)
}

func TestView_Esc_BackToMenu(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_View(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})

	out := view.View()

	assert.Contains(t, out, "Settings")
	assert.Contains(t, out, "config.toml")
	assert.Contains(t, out, "Classification")
	assert.Contains(t, out, "Auto-tagging")
	assert.Contains(t, out, "[config file]")
}

func TestView_View_Loading(t *testing.T) {
	view := NewView(nil, nil)

	assert.Contains(t, view.View(), "Loading settings...")
}

func TestView_Reset(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})
	view.selected = 3
	view.editing = true
	view.err = errors.New("stale")

	view.Reset()

	assert.Equal(t, 0, view.selected)
	assert.False(t, view.Editing())
	assert.NoError(t, view.Err())
}
