// Package pagination pages document and violation listings. Requests are
// clamped to the configured page sizes before they reach the query builder.
package pagination

import (
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultPageSize = 20
	DefaultMaxPage  = 100
)

type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// ConfigEnv names the environment variables read by Finalize. Empty names
// are skipped.
type ConfigEnv struct {
	DefaultPageSize string
	MaxPageSize     string
}

type sizeField struct {
	name  string
	value *int
	def   int
	env   string
}

func (c *Config) sizes(env *ConfigEnv) []sizeField {
	if env == nil {
		env = &ConfigEnv{}
	}
	return []sizeField{
		{"default_page_size", &c.DefaultPageSize, DefaultPageSize, env.DefaultPageSize},
		{"max_page_size", &c.MaxPageSize, DefaultMaxPage, env.MaxPageSize},
	}
}

// Finalize fills unset sizes, applies env overrides, then checks that the
// default page fits under the maximum.
func (c *Config) Finalize(env *ConfigEnv) error {
	for _, f := range c.sizes(env) {
		if *f.value <= 0 {
			*f.value = f.def
		}
		if f.env == "" {
			continue
		}
		if n, err := strconv.Atoi(os.Getenv(f.env)); err == nil {
			*f.value = n
		}
	}
	return c.validate()
}

func (c *Config) Merge(overlay *Config) {
	theirs := overlay.sizes(nil)
	for i, f := range c.sizes(nil) {
		if v := *theirs[i].value; v != 0 {
			*f.value = v
		}
	}
}

func (c *Config) validate() error {
	for _, f := range c.sizes(nil) {
		if *f.value < 1 {
			return fmt.Errorf("%s must be positive", f.name)
		}
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default_page_size %d cannot exceed max_page_size %d", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}
