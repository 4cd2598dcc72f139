package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/docfx-topics/internal/project"
	"github.com/spf13/cobra"
)

var (
	filesExt []string
	filesAbs bool
)

var filesCmd = &cobra.Command{
	Use:   "files [project]",
	Short: "List the content files of a DocFX project",
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
		p, err := project.Load(projectFile, project.WithTopicExtensions(c.TopicExtensions...))
		if err != nil {
			return err
		}
		exts := filesExt
		if len(exts) == 0 {
			exts = p.TopicExtensions()
		}
		files, err := p.GetContentFiles(cmd.Context(), exts...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, f := range files {
			if !filesAbs {
				if rel, err := filepath.Rel(p.ProjectDir(), f); err == nil {
					f = rel
				}
			}
			fmt.Fprintln(out, f)
		}
		return nil
	},
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.Flags().StringSliceVar(&filesExt, "ext", nil, "only list files with these extensions (default from topic_extensions)")
	filesCmd.Flags().BoolVar(&filesAbs, "absolute", false, "print absolute paths")
}
