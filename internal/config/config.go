package config

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`

	// Logging; an empty LogFile logs to stderr.
	LogFile       string `mapstructure:"log_file" yaml:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups" yaml:"log_max_backups"`

	Watch bool `mapstructure:"watch" yaml:"watch"`
	// TopicExtensions limits which content files are scanned for topics.
	TopicExtensions []string `mapstructure:"topic_extensions" yaml:"topic_extensions"`
}

// Dir returns ~/.docfx-topics.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".docfx-topics"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.docfx-topics/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCFX_TOPICS")
	v.AutomaticEnv()

	v.SetDefault("state_dir", "")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("watch", true)
	v.SetDefault("topic_extensions", []string{".md", ".yml"})

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.StateDir == "" {
		c.StateDir = filepath.Join(dir, "state")
	}
	c.StateDir = expandHome(c.StateDir)
	c.LogFile = expandHome(c.LogFile)
	return &c, nil
}

// StateDirFor returns the directory holding persisted state for one project.
// Each project file gets its own directory.
func (c *Global) StateDirFor(projectFile string) string {
	abs, err := filepath.Abs(projectFile)
	if err != nil {
		abs = projectFile
	}
	sum := sha1.Sum([]byte(abs))
	return filepath.Join(c.StateDir, hex.EncodeToString(sum[:])[:12])
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	p = strings.TrimPrefix(p, "~")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, string(os.PathSeparator))
	return filepath.Join(home, p)
}
