package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/KaramelBytes/docfx-topics/internal/cache"
	"github.com/KaramelBytes/docfx-topics/internal/logging"
	"github.com/KaramelBytes/docfx-topics/internal/topic"
	"github.com/KaramelBytes/docfx-topics/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [project]",
	Short: "Keep the topic cache current and print changes until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectFile, err := resolveProjectFile(firstArg(args))
		if err != nil {
			return err
		}
		c, err := config()
		if err != nil {
			return err
		}
		if !c.Watch {
			return fmt.Errorf("watching is disabled (config key watch)")
		}

		// One feed serves both the cache and the printed change log.
		feed := watch.NewFeed(filepath.Dir(projectFile), watch.WithLogger(logging.New("watch")))
		defer feed.Close()

		tc, err := openCache(projectFile, cache.WithWatch(func(string) (<-chan topic.Change, func(), error) {
			return feed.Subscribe()
		}))
		if err != nil {
			return err
		}
		defer tc.Close()

		changes, cancel, err := feed.Subscribe()
		if err != nil {
			return err
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := populate(ctx, cmd, tc); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Watching %s (%d topics). Press Ctrl+C to stop.\n", tc.ProjectFile(), tc.TopicCount())

		for {
			select {
			case <-ctx.Done():
				return nil
			case change, ok := <-changes:
				if !ok {
					return nil
				}
				fmt.Fprintf(out, "%-8s %s (%d topics)\n", change.ChangeType, change.ContentFile, len(change.Topics))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
