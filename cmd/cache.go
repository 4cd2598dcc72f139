package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persisted topic cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [project]",
	Short: "Discard the persisted topic cache of a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectFile, err := resolveProjectFile(firstArg(args))
		if err != nil {
			return err
		}
		tc, err := openCache(projectFile)
		if err != nil {
			return err
		}
		defer tc.Close()
		if err := tc.Flush(true); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared topic cache for %s\n", tc.ProjectFile())
		return nil
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "Show where a project's topic cache lives and what it holds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectFile, err := resolveProjectFile(firstArg(args))
		if err != nil {
			return err
		}
		tc, err := openCache(projectFile)
		if err != nil {
			return err
		}
		defer tc.Close()
		if err := populate(cmd.Context(), cmd, tc); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "project:    %s\n", tc.ProjectFile())
		fmt.Fprintf(out, "cache file: %s\n", tc.CacheFile())
		fmt.Fprintf(out, "topics:     %d\n", tc.TopicCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
}
