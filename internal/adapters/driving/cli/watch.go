package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchOnce bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tag new bookmarks in the background",
	Long: `Runs the auto tagger until interrupted. Bookmarks without tags are
classified every auto_tag.interval_seconds, and as soon as another process
such as the MCP server writes to the database.

Use --once to tag one batch and exit.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "tag one batch and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if autoTagger == nil {
		return errors.New("auto tagger not configured")
	}

	if watchOnce {
		n := autoTagger.RunOnce(commandContext(cmd))
		cmd.Printf("Tagged %d bookmarks\n", n)
		return nil
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Watching for untagged bookmarks. Press Ctrl+C to stop.")
	err := autoTagger.Start(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
