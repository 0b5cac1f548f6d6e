package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/editor"
	"github.com/JaimeStill/foreman/internal/monitor"
	"github.com/JaimeStill/foreman/internal/tax"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/pkg/database"
	"github.com/JaimeStill/foreman/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvForemanConfig          = "FOREMAN_CONFIG"
	EnvForemanEnv             = "FOREMAN_ENV"
	EnvForemanShutdownTimeout = "FOREMAN_SHUTDOWN_TIMEOUT"
	EnvForemanVersion         = "FOREMAN_VERSION"
)

// Config is the root configuration shared by the server and the CLI.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Logging         LoggingConfig        `toml:"logging"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Templates       templates.Config     `toml:"templates"`
	Tax             tax.Config           `toml:"tax"`
	Validation      validation.Config    `toml:"validation"`
	Editor          editor.Config        `toml:"editor"`
	Monitor         monitor.Config       `toml:"monitor"`
	Compliance      compliance.Config    `toml:"compliance"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`

	sources []string
}

// Env returns the FOREMAN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvForemanEnv); env != "" {
		return env
	}
	return "local"
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Sources lists the files merged into c, base file first.
func (c *Config) Sources() []string {
	return c.sources
}

// Load reads the file named by FOREMAN_CONFIG, or config.toml in the working
// directory, applies the FOREMAN_ENV overlay, and finalizes all values.
func Load() (*Config, error) {
	path := BaseConfigFile
	if v := os.Getenv(EnvForemanConfig); v != "" {
		path = v
	}
	return LoadFile(path, nil)
}

// LoadFile is Load with an explicit base file merged over base. A missing
// file leaves base, defaults, and environment variables to provide all
// configuration. The FOREMAN_ENV overlay is looked up next to path.
func LoadFile(path string, base *Config) (*Config, error) {
	cfg := &Config{}
	if base != nil {
		*cfg = *base
		cfg.sources = nil
	}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(loaded)
		cfg.sources = append(cfg.sources, path)
	}

	if overlay := overlayPath(path); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
		cfg.sources = append(cfg.sources, overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Logging.Merge(&overlay.Logging)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Templates.Merge(&overlay.Templates)
	c.Tax.Merge(&overlay.Tax)
	c.Validation.Merge(&overlay.Validation)
	c.Editor.Merge(&overlay.Editor)
	c.Monitor.Merge(&overlay.Monitor)
	c.Compliance.Merge(&overlay.Compliance)
}

// Finalize applies defaults, environment overrides, and validation to every
// section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	steps := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"logging", c.Logging.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"agent", func() error { return FinalizeAgent(&c.Agent) }},
		{"templates", func() error { return c.Templates.Finalize(templatesEnv) }},
		{"tax", func() error { return c.Tax.Finalize(taxEnv) }},
		{"validation", func() error { return c.Validation.Finalize(validationEnv) }},
		{"editor", func() error { return c.Editor.Finalize(editorEnv) }},
		{"monitor", func() error { return c.Monitor.Finalize(monitorEnv) }},
		{"compliance", func() error { return c.Compliance.Finalize(complianceEnv) }},
	}
	for _, s := range steps {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// Embedded returns a base for single-user use with SQLite and local blob
// storage under dir.
func Embedded(dir string) *Config {
	return &Config{
		Database: database.Config{
			Driver: database.DriverSQLite,
			Path:   filepath.Join(dir, "foreman.db"),
		},
		Storage: storage.Config{
			Backend: storage.BackendLocal,
			Root:    filepath.Join(dir, "artifacts"),
		},
	}
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvForemanShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvForemanVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(base string) string {
	env := os.Getenv(EnvForemanEnv)
	if env == "" {
		return ""
	}
	path := filepath.Join(filepath.Dir(base), fmt.Sprintf(OverlayConfigPattern, env))
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
