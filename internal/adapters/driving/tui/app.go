package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/views/bookmark"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/views/settings"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui/views/tags"
	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	menuView     *menu.View
	searchView   *search.View
	tagsView     *tags.View
	bookmarkView *bookmark.View
	settingsView *settings.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPorts, err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		menuView:     menu.NewView(s),
		searchView:   search.NewView(s, nil, ports.Search, ports.Classifier),
		tagsView:     tags.NewView(s, ports.Bookmarks),
		bookmarkView: bookmark.NewView(s, nil, ports.Bookmarks, ports.Classifier),
		settingsView: settings.NewView(s, ports.Settings),
		currentView:  messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and the views that call services.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.tagsView.WithContext(ctx)
	a.bookmarkView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("tagmark - Bookmark Search"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo,funlen // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		previous := a.currentView
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewSearch:
			// Coming back from a bookmark keeps the results on screen.
			if previous == messages.ViewBookmark {
				return a, nil
			}
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewTags:
			return a, a.tagsView.Init()
		case messages.ViewSettings:
			a.settingsView.Reset()
			return a, a.settingsView.Init()
		case messages.ViewMenu, messages.ViewHelp, messages.ViewBookmark:
		}
		return a, nil

	case messages.TagSelected:
		a.currentView = messages.ViewSearch
		a.searchView.Reset()
		return a, a.searchView.SearchFor(input.TagQuery(msg.Tag))

	case messages.BookmarkSelected:
		a.currentView = messages.ViewBookmark
		return a, a.bookmarkView.Load(msg.ID)

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.BookmarkLoaded:
		a.bookmarkView, cmd = a.bookmarkView.Update(msg)
		return a, cmd

	case messages.BookmarkClassified:
		// Re-tagging starts from either the results list or the details view.
		if a.currentView == messages.ViewSearch {
			a.searchView, cmd = a.searchView.Update(msg)
			return a, cmd
		}
		a.bookmarkView, cmd = a.bookmarkView.Update(msg)
		return a, cmd

	case messages.TagsLoaded:
		a.tagsView, cmd = a.tagsView.Update(msg)
		return a, cmd

	case messages.SettingsLoaded, messages.SettingsSaved:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewSearch {
			a.searchView, cmd = a.searchView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward passes msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
	case messages.ViewTags:
		a.tagsView, cmd = a.tagsView.Update(msg)
	case messages.ViewBookmark:
		a.bookmarkView, cmd = a.bookmarkView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewTags:
		return a.tagsView.View()
	case messages.ViewBookmark:
		return a.bookmarkView.View()
	case messages.ViewSettings:
		return a.settingsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Search:
  words       Match titles, descriptions and page text
  #tag        Require a tag (use _ for spaces: #machine_learning)
  ~words      Search by meaning only
  =words      Search by words only
  enter       Submit search

Results:
  j/k, ↑/↓    Navigate results
  enter       Open actions (details, re-tag)
  n           New search

Bookmark:
  r           Re-tag
  d           Deep re-tag (all tiers)

Tags:
  tab, c      Cycle category filter
  enter       Search bookmarks with the tag
  r           Reload

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Results returns the current search results.
func (a *App) Results() []domain.SearchResult {
	return a.searchView.Results()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.tagsView.SetDimensions(width, height)
	a.bookmarkView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
}
