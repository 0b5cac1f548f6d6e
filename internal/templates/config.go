package templates

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Config controls where templates are discovered and whether they are watched.
type Config struct {
	Dir     string   `toml:"dir"`
	Include []string `toml:"include"`
	Ignore  []string `toml:"ignore"`
	Watch   bool     `toml:"watch"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Dir   string
	Watch string
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
	if overlay.Dir != "" {
		c.Dir = overlay.Dir
	}
	if len(overlay.Include) > 0 {
		c.Include = overlay.Include
	}
	if len(overlay.Ignore) > 0 {
		c.Ignore = overlay.Ignore
	}
	if overlay.Watch {
		c.Watch = true
	}
}

func (c *Config) loadDefaults() {
	if c.Dir == "" {
		c.Dir = "templates"
	}
	if len(c.Include) == 0 {
		c.Include = []string{"**/*.yaml", "**/*.yml", "**/*.json"}
	}
	if c.Ignore == nil {
		c.Ignore = []string{"**/_*", "**/.*/**"}
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Dir != "" {
		if v := os.Getenv(env.Dir); v != "" {
			c.Dir = v
		}
	}
	if env.Watch != "" {
		if v := os.Getenv(env.Watch); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Watch = b
			}
		}
	}
}

func (c *Config) validate() error {
	for _, p := range append(append([]string{}, c.Include...), c.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid pattern %q", p)
		}
	}
	return nil
}

// matches reports whether the slash-separated relative path is included and not ignored.
func (c *Config) matches(rel string) bool {
	rel = strings.TrimPrefix(rel, "./")
	for _, p := range c.Ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	for _, p := range c.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
