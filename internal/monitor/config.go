package monitor

import (
	"fmt"
	"os"
	"time"
)

// Config holds polling parameters.
type Config struct {
	Interval    string `toml:"interval"`
	MaxDuration string `toml:"max_duration"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Interval    string
	MaxDuration string
}

// IntervalDuration returns Interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// MaxDurationValue returns MaxDuration as a time.Duration.
func (c *Config) MaxDurationValue() time.Duration {
	d, _ := time.ParseDuration(c.MaxDuration)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.MaxDuration != "" {
		c.MaxDuration = overlay.MaxDuration
	}
}

func (c *Config) loadDefaults() {
	if c.Interval == "" {
		c.Interval = "2s"
	}
	if c.MaxDuration == "" {
		c.MaxDuration = "10m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Interval != "" {
		if v := os.Getenv(env.Interval); v != "" {
			c.Interval = v
		}
	}
	if env.MaxDuration != "" {
		if v := os.Getenv(env.MaxDuration); v != "" {
			c.MaxDuration = v
		}
	}
}

func (c *Config) validate() error {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	maxDuration, err := time.ParseDuration(c.MaxDuration)
	if err != nil {
		return fmt.Errorf("invalid max_duration: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if maxDuration < interval {
		return fmt.Errorf("max_duration (%s) must be at least interval (%s)", maxDuration, interval)
	}
	return nil
}
