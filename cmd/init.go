package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/docfx-topics/internal/utils"
	"github.com/spf13/cobra"
)

const scaffoldProject = `{
  "build": {
    "content": [
      {
        "files": ["**.md", "**/toc.yml"],
        "exclude": ["_site/**", "obj/**"]
      }
    ],
    "dest": "_site"
  }
}
`

const scaffoldIndex = `---
uid: Index
title: Welcome
---
# Welcome
`

const scaffoldTOC = `- name: Welcome
  href: articles/index.md
`

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a minimal DocFX project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		dir, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		projectFile := filepath.Join(dir, utils.ProjectFileName)
		// Refuse to overwrite an existing project.
		if _, err := os.Stat(projectFile); err == nil {
			return fmt.Errorf("project already exists at %s", projectFile)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat project file: %w", err)
		}

		files := map[string]string{
			projectFile:                                scaffoldProject,
			filepath.Join(dir, "toc.yml"):              scaffoldTOC,
			filepath.Join(dir, "articles", "index.md"): scaffoldIndex,
		}
		for path, content := range files {
			if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				continue
			}
			if err := utils.SafeWriteFile(path, []byte(content)); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Project initialized: %s\n", projectFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
