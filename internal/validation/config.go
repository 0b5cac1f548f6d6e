package validation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds validation thresholds and collaborator deadlines.
type Config struct {
	VisionThreshold   float64 `toml:"vision_threshold"`
	BlockOnProduction bool    `toml:"block_on_production"`
	MaxPages          int     `toml:"max_pages"`
	EditorTimeout     string  `toml:"editor_timeout"`
	VisionTimeout     string  `toml:"vision_timeout"`
	WorkDir           string  `toml:"work_dir"`
}

// Env maps config fields to environment variable names.
type Env struct {
	VisionThreshold   string
	BlockOnProduction string
	MaxPages          string
	EditorTimeout     string
	VisionTimeout     string
	WorkDir           string
}

// EditorTimeoutDuration returns EditorTimeout as a time.Duration.
func (c *Config) EditorTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.EditorTimeout)
	return d
}

// VisionTimeoutDuration returns VisionTimeout as a time.Duration.
func (c *Config) VisionTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.VisionTimeout)
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
	if overlay.VisionThreshold != 0 {
		c.VisionThreshold = overlay.VisionThreshold
	}
	if overlay.BlockOnProduction {
		c.BlockOnProduction = true
	}
	if overlay.MaxPages != 0 {
		c.MaxPages = overlay.MaxPages
	}
	if overlay.EditorTimeout != "" {
		c.EditorTimeout = overlay.EditorTimeout
	}
	if overlay.VisionTimeout != "" {
		c.VisionTimeout = overlay.VisionTimeout
	}
	if overlay.WorkDir != "" {
		c.WorkDir = overlay.WorkDir
	}
}

func (c *Config) loadDefaults() {
	if c.VisionThreshold == 0 {
		c.VisionThreshold = 7
	}
	if c.MaxPages == 0 {
		c.MaxPages = 2
	}
	if c.EditorTimeout == "" {
		c.EditorTimeout = "30s"
	}
	if c.VisionTimeout == "" {
		c.VisionTimeout = "90s"
	}
	if c.WorkDir == "" {
		c.WorkDir = os.TempDir()
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.VisionThreshold != "" {
		if v, err := strconv.ParseFloat(os.Getenv(env.VisionThreshold), 64); err == nil {
			c.VisionThreshold = v
		}
	}
	if env.BlockOnProduction != "" {
		if v, err := strconv.ParseBool(os.Getenv(env.BlockOnProduction)); err == nil {
			c.BlockOnProduction = v
		}
	}
	if env.MaxPages != "" {
		if v, err := strconv.Atoi(os.Getenv(env.MaxPages)); err == nil {
			c.MaxPages = v
		}
	}
	if env.EditorTimeout != "" {
		if v := os.Getenv(env.EditorTimeout); v != "" {
			c.EditorTimeout = v
		}
	}
	if env.VisionTimeout != "" {
		if v := os.Getenv(env.VisionTimeout); v != "" {
			c.VisionTimeout = v
		}
	}
	if env.WorkDir != "" {
		if v := os.Getenv(env.WorkDir); v != "" {
			c.WorkDir = v
		}
	}
}

func (c *Config) validate() error {
	if c.VisionThreshold < 0 || c.VisionThreshold > 10 {
		return fmt.Errorf("vision_threshold must be between 0 and 10")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be at least 1")
	}
	if _, err := time.ParseDuration(c.EditorTimeout); err != nil {
		return fmt.Errorf("invalid editor_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.VisionTimeout); err != nil {
		return fmt.Errorf("invalid vision_timeout: %w", err)
	}
	return nil
}
