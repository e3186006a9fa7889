// Package config loads recap settings from a YAML file, the environment and a
// token file, in that order of precedence (later wins, flags win over all).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Config holds everything a recap run needs besides its positional arguments.
type Config struct {
	Username string        `yaml:"username"`
	Year     int           `yaml:"year"`
	Lichess  LichessConfig `yaml:"lichess"`
	Log      LogConfig     `yaml:"log"`
	Analyze  AnalyzeConfig `yaml:"analyze"`
	Export   ExportConfig  `yaml:"export"`
}

// LichessConfig configures the HTTP client.
type LichessConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	Burst      int           `yaml:"burst"`
}

// LogConfig configures diagnostics output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AnalyzeConfig configures the analyze command.
type AnalyzeConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// ExportConfig sets default output locations.
type ExportConfig struct {
	DBPath   string `yaml:"db_path"`
	JSONPath string `yaml:"json_path"`
}

// DefaultDir is ~/.lichess-recap, or "." if the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".lichess-recap")
}

// DefaultPath is the config file read when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads the config at path. An empty path means DefaultPath, which may
// be absent; an explicit path must exist. Environment variables and the
// token file next to the config are applied afterwards, then defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	// Zero is a valid retry count, so its default is seeded before the
	// file is read rather than filled in afterwards.
	cfg := &Config{Lichess: LichessConfig{MaxRetries: DefaultMaxRetries}}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if cfg.Lichess.Token == "" {
		cfg.Lichess.Token = readTokenFile(filepath.Join(filepath.Dir(path), "token"))
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LICHESS_TOKEN"); v != "" {
		c.Lichess.Token = v
	}
	if v := os.Getenv("LICHESS_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("LICHESS_BASE_URL"); v != "" {
		c.Lichess.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && c.Analyze.APIKey == "" {
		c.Analyze.APIKey = v
	}
}

func readTokenFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
