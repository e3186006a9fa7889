package config

import (
	"errors"
	"fmt"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultBaseURL      = "https://lichess.org"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 2
	DefaultRatePerSec   = 1.0
	DefaultBurst        = 2
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "console"
	DefaultAnalyzeModel = "claude-haiku-4-5-20251001"
	MinYear             = 2010
)

// now is swapped in tests.
var now = time.Now

func (c *Config) applyDefaults() {
	if c.Year == 0 {
		c.Year = now().UTC().Year()
	}
	if c.Lichess.BaseURL == "" {
		c.Lichess.BaseURL = DefaultBaseURL
	}
	if c.Lichess.Timeout == 0 {
		c.Lichess.Timeout = DefaultTimeout
	}
	if c.Lichess.RatePerSec == 0 {
		c.Lichess.RatePerSec = DefaultRatePerSec
	}
	if c.Lichess.Burst == 0 {
		c.Lichess.Burst = DefaultBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Analyze.Model == "" {
		c.Analyze.Model = DefaultAnalyzeModel
	}
}

// Validate checks that values are usable. Username is checked by the
// commands that need one.
func (c *Config) Validate() error {
	if c.Year < MinYear {
		return fmt.Errorf("year must be >= %d, got %d", MinYear, c.Year)
	}
	if c.Year > now().UTC().Year()+1 {
		return fmt.Errorf("year %d is in the future", c.Year)
	}
	if c.Lichess.BaseURL == "" {
		return errors.New("lichess.base_url is required")
	}
	if c.Lichess.Timeout <= 0 {
		return errors.New("lichess.timeout must be > 0")
	}
	if c.Lichess.MaxRetries < 0 {
		return errors.New("lichess.max_retries must be >= 0")
	}
	if c.Lichess.RatePerSec <= 0 {
		return errors.New("lichess.rate_per_sec must be > 0")
	}
	if c.Lichess.Burst < 1 {
		return errors.New("lichess.burst must be >= 1")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
