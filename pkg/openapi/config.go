package openapi

import "os"

// Config holds the metadata published in the generated document.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Enabled     *bool  `toml:"enabled"`
}

// ConfigEnv maps config fields to environment variable names for override injection.
type ConfigEnv struct {
	Title       string
	Description string
	Enabled     string
}

// Finalize applies defaults and environment variable overrides.
func (c *Config) Finalize(env *ConfigEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
}

// Serve reports whether the document should be published. Defaults to true.
func (c *Config) Serve() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *Config) loadDefaults() {
	if c.Title == "" {
		c.Title = "Foreman API"
	}
	if c.Description == "" {
		c.Description = "Template-driven estimate generation with layered validation and an audited compliance trail."
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if env.Title != "" {
		if v := os.Getenv(env.Title); v != "" {
			c.Title = v
		}
	}
	if env.Description != "" {
		if v := os.Getenv(env.Description); v != "" {
			c.Description = v
		}
	}
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			enabled := v == "true" || v == "1"
			c.Enabled = &enabled
		}
	}
}
