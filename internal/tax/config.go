package tax

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Config overrides the fallback rate and jurisdiction of the built-in rules.
type Config struct {
	DefaultRate         string `toml:"default_rate"`
	DefaultJurisdiction string `toml:"default_jurisdiction"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	DefaultRate         string
	DefaultJurisdiction string
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
	if overlay.DefaultRate != "" {
		c.DefaultRate = overlay.DefaultRate
	}
	if overlay.DefaultJurisdiction != "" {
		c.DefaultJurisdiction = overlay.DefaultJurisdiction
	}
}

// Rules builds the rule set described by the config.
func (c *Config) Rules() *Rules {
	r := DefaultRules()
	if rate, err := decimal.NewFromString(c.DefaultRate); err == nil {
		r.DefaultRate = rate
	}
	if c.DefaultJurisdiction != "" {
		r.DefaultJurisdiction = c.DefaultJurisdiction
	}
	return r
}

func (c *Config) loadDefaults() {
	if c.DefaultRate == "" {
		c.DefaultRate = "0.075"
	}
	if c.DefaultJurisdiction == "" {
		c.DefaultJurisdiction = "TX"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.DefaultRate != "" {
		if v := os.Getenv(env.DefaultRate); v != "" {
			c.DefaultRate = v
		}
	}
	if env.DefaultJurisdiction != "" {
		if v := os.Getenv(env.DefaultJurisdiction); v != "" {
			c.DefaultJurisdiction = v
		}
	}
}

func (c *Config) validate() error {
	rate, err := decimal.NewFromString(c.DefaultRate)
	if err != nil {
		return fmt.Errorf("invalid default_rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("default_rate must be in [0, 1)")
	}
	if strings.Contains(c.DefaultJurisdiction, "+") {
		if _, err := c.Rules().Rate(c.DefaultJurisdiction); err != nil {
			return fmt.Errorf("default_jurisdiction: %w", err)
		}
	}
	return nil
}
