package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/docfx-topics/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set docfx-topics configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "state_dir: %s\n", c.StateDir)
		if c.LogFile != "" {
			fmt.Fprintf(out, "log_file: %s\n", c.LogFile)
			fmt.Fprintf(out, "log_max_size_mb: %d\n", c.LogMaxSizeMB)
			fmt.Fprintf(out, "log_max_backups: %d\n", c.LogMaxBackups)
		}
		fmt.Fprintf(out, "watch: %t\n", c.Watch)
		fmt.Fprintf(out, "topic_extensions: %s\n", strings.Join(c.TopicExtensions, ","))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "state_dir":
		c.StateDir = val
	case "log_file":
		c.LogFile = val
	case "log_max_size_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for log_max_size_mb: %v", val)
		}
		c.LogMaxSizeMB = i
	case "log_max_backups":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for log_max_backups: %v", val)
		}
		c.LogMaxBackups = i
	case "watch":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for watch: %w", err)
		}
		c.Watch = b
	case "topic_extensions":
		var exts []string
		for _, e := range strings.Split(val, ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts = append(exts, strings.ToLower(e))
		}
		if len(exts) == 0 {
			return fmt.Errorf("topic_extensions needs at least one extension")
		}
		c.TopicExtensions = exts
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
