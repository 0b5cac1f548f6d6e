package storage

import (
	"fmt"
	"os"
	"strconv"
)

// Supported backends.
const (
	BackendAzure = "azure"
	BackendLocal = "local"
)

// Config holds blob storage parameters. Backend selects Azure Blob Storage
// ("azure") or a directory on the local filesystem ("local", rooted at Root).
type Config struct {
	Backend          string `toml:"backend"`
	Root             string `toml:"root"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	MaxListSize      int32  `toml:"max_list_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend          string
	Root             string
	ContainerName    string
	ConnectionString string
	MaxListSize      string
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
	theirs := overlay.fields()
	for i, f := range c.fields() {
		if v := *theirs[i]; v != "" {
			*f = v
		}
	}
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
}

func (c *Config) fields() []*string {
	return []*string{&c.Backend, &c.Root, &c.ContainerName, &c.ConnectionString}
}

func (e *Env) fields() []string {
	return []string{e.Backend, e.Root, e.ContainerName, e.ConnectionString}
}

func (c *Config) loadDefaults() {
	defaults := []string{BackendAzure, "artifacts", "documents", ""}
	for i, f := range c.fields() {
		if *f == "" {
			*f = defaults[i]
		}
	}
	if c.MaxListSize == 0 {
		c.MaxListSize = 50
	}
}

func (c *Config) loadEnv(env *Env) {
	names := env.fields()
	for i, f := range c.fields() {
		if names[i] == "" {
			continue
		}
		if v := os.Getenv(names[i]); v != "" {
			*f = v
		}
	}
	if env.MaxListSize != "" {
		if n, err := strconv.Atoi(os.Getenv(env.MaxListSize)); err == nil && n > 0 {
			c.MaxListSize = int32(min(n, int(MaxListCap)))
		}
	}
}

// validate checks the selected backend's settings and clamps MaxListSize to
// MaxListCap.
func (c *Config) validate() error {
	switch c.Backend {
	case BackendAzure:
		if c.ContainerName == "" {
			return fmt.Errorf("container_name required")
		}
		if c.ConnectionString == "" {
			return fmt.Errorf("connection_string required")
		}
	case BackendLocal:
		if c.Root == "" {
			return fmt.Errorf("root required")
		}
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}

	if c.MaxListSize < 1 {
		return fmt.Errorf("max_list_size must be positive: %d", c.MaxListSize)
	}
	c.MaxListSize = min(c.MaxListSize, MaxListCap)
	return nil
}
