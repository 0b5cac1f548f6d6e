package editor

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Supported editor backends.
const (
	BackendChrome = "chrome"
	BackendNone   = "none"
)

// Config holds editor parameters.
type Config struct {
	Backend     string `toml:"backend"`
	ExecPath    string `toml:"exec_path"`
	Headful     bool   `toml:"headful"`
	NoSandbox   bool   `toml:"no_sandbox"`
	CallTimeout string `toml:"call_timeout"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Backend     string
	ExecPath    string
	Headful     string
	NoSandbox   string
	CallTimeout string
}

// CallTimeoutDuration returns CallTimeout as a time.Duration.
func (c *Config) CallTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CallTimeout)
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
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.ExecPath != "" {
		c.ExecPath = overlay.ExecPath
	}
	if overlay.Headful {
		c.Headful = true
	}
	if overlay.NoSandbox {
		c.NoSandbox = true
	}
	if overlay.CallTimeout != "" {
		c.CallTimeout = overlay.CallTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendChrome
	}
	if c.CallTimeout == "" {
		c.CallTimeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.ExecPath != "" {
		if v := os.Getenv(env.ExecPath); v != "" {
			c.ExecPath = v
		}
	}
	if env.Headful != "" {
		if v, err := strconv.ParseBool(os.Getenv(env.Headful)); err == nil {
			c.Headful = v
		}
	}
	if env.NoSandbox != "" {
		if v, err := strconv.ParseBool(os.Getenv(env.NoSandbox)); err == nil {
			c.NoSandbox = v
		}
	}
	if env.CallTimeout != "" {
		if v := os.Getenv(env.CallTimeout); v != "" {
			c.CallTimeout = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendChrome, BackendNone:
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return fmt.Errorf("invalid call_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("call_timeout must be positive")
	}
	return nil
}
