// Package config loads server configuration from an optional YAML file,
// with environment variables taking precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// SessionConfig tunes session behavior.
type SessionConfig struct {
	MinEstimatedTotal int    `yaml:"min_estimated_total"`
	OnTerminal        string `yaml:"on_terminal"` // reset or reject
}

// ArchiveConfig controls the transcript archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the full server configuration.
type Config struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      Duration      `yaml:"timeout"`
	InsightRules string        `yaml:"insight_rules"`
	Session      SessionConfig `yaml:"session"`
	Archive      ArchiveConfig `yaml:"archive"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Provider: "deepseek",
		Timeout:  Duration(30 * time.Second),
		Session: SessionConfig{
			MinEstimatedTotal: 5,
			OnTerminal:        "reset",
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".seqthink", "transcripts.db"),
		},
	}
}

// Load reads the config file at path (if non-empty) over the defaults and
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Session.OnTerminal != "reset" && cfg.Session.OnTerminal != "reject" {
		return cfg, fmt.Errorf("session.on_terminal must be reset or reject, got %q", cfg.Session.OnTerminal)
	}
	if cfg.Session.MinEstimatedTotal < 1 {
		return cfg, fmt.Errorf("session.min_estimated_total must be positive, got %d", cfg.Session.MinEstimatedTotal)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("SEQTHINK_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Timeout = Duration(parsed)
		}
	}
	if v := os.Getenv("SEQTHINK_SYSTEM_PROMPT"); v != "" {
		c.SystemPrompt = v
	}
	if v := os.Getenv("SEQTHINK_INSIGHT_RULES"); v != "" {
		c.InsightRules = v
	}
	if v := os.Getenv("SEQTHINK_ON_TERMINAL"); v != "" {
		c.Session.OnTerminal = v
	}
	if v := os.Getenv("SEQTHINK_ARCHIVE_PATH"); v != "" {
		c.Archive.Path = v
	}
	if os.Getenv("SEQTHINK_ARCHIVE_DISABLED") != "" {
		c.Archive.Enabled = false
	}
}
