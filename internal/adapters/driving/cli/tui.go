package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tagmark/internal/adapters/driving/tui"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// errNotTerminal is returned when stdout cannot host the TUI.
var errNotTerminal = errors.New("the TUI needs an interactive terminal")

// isTerminal reports whether stdout is a terminal. Tests replace it.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for tagmark.

Search bookmarks, browse tags, inspect and re-tag bookmarks and change
settings. The auto tagger runs in the background while the TUI is open.

Search syntax:
  words    - Match text and meaning
  #tag     - Require a tag (#machine_learning for "machine learning")
  ~words   - Meaning only
  =words   - Words only

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Search / Select
  Esc      - Back
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(searchService, bookmarkService, classifier, settingsService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if !isTerminal() {
		return errNotTerminal
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	// The TUI owns the screen, so background log lines are dropped.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	if autoTagger != nil {
		go func() {
			if err := autoTagger.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "auto tagger stopped: %v\n", err)
			}
		}()
		defer func() {
			if err := autoTagger.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "auto tagger stop error: %v\n", err)
			}
		}()
	}

	if err := app.WithContext(ctx).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
