package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/docfx-topics/internal/cache"
	cfgpkg "github.com/KaramelBytes/docfx-topics/internal/config"
	"github.com/KaramelBytes/docfx-topics/internal/logging"
	"github.com/KaramelBytes/docfx-topics/internal/project"
	"github.com/KaramelBytes/docfx-topics/internal/utils"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg       *cfgpkg.Global
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "docfx-topics",
	Short: "Index the topic metadata of a DocFX project",
	Long: `docfx-topics scans a DocFX project (docfx.json) for content files, extracts the
topics (UIDs) they define, and keeps a persisted metadata cache up to date as files change.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.docfx-topics/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print progress while scanning")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults.
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	logCloser = logging.Setup(logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
}

// config returns the loaded configuration, loading it on first use.
func config() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// resolveProjectFile finds the docfx.json named by arg (a file or a directory),
// or the nearest one above the working directory when arg is empty.
func resolveProjectFile(arg string) (string, error) {
	projectFile, err := utils.FindProjectFile(arg)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", utils.ProjectFileName, err)
	}
	return projectFile, nil
}

// openCache opens the project's metadata cache. Options are appended to the
// defaults, so callers can override how changes are watched.
func openCache(projectFile string, opts ...cache.Option) (*cache.Cache, error) {
	c, err := config()
	if err != nil {
		return nil, err
	}
	base := []cache.Option{
		cache.WithLogger(logging.New("cache")),
		cache.WithLoader(cache.ProjectLoader(project.WithTopicExtensions(c.TopicExtensions...))),
		cache.WithWatch(nil),
	}
	tc := cache.New(c.StateDirFor(projectFile), append(base, opts...)...)
	if err := tc.OpenProject(projectFile); err != nil {
		return nil, err
	}
	return tc, nil
}

// populate ensures tc holds the project's topics.
func populate(ctx context.Context, cmd *cobra.Command, tc *cache.Cache) error {
	progress := &cliProgress{w: cmd.ErrOrStderr(), verbose: debug}
	ok, err := tc.EnsurePopulated(ctx, progress)
	if err != nil {
		return err
	}
	if !ok {
		if progress.err != nil {
			return fmt.Errorf("populate topic cache: %w", progress.err)
		}
		return errors.New("populate topic cache: scan did not complete")
	}
	return nil
}

// cliProgress prints scan progress when verbose and remembers the failure.
type cliProgress struct {
	w       io.Writer
	verbose bool
	err     error
}

func (p *cliProgress) Report(message string) {
	if p.verbose {
		fmt.Fprintf(p.w, "… %s\n", message)
	}
}

func (p *cliProgress) Fail(err error) { p.err = err }
