package database

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Supported drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Config holds connection parameters. Driver selects PostgreSQL ("pgx") or an
// embedded SQLite file ("sqlite", located by Path). Durations are Go duration
// strings.
type Config struct {
	Driver          string `toml:"driver"`
	Path            string `toml:"path"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// Env names the environment variable that overrides each field. Empty names
// are skipped.
type Env struct {
	Driver          string
	Path            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

type stringField struct {
	value *string
	def   string
}

type intField struct {
	value *int
	def   int
}

// textFields and numberFields pair every field with its default. Env and Merge walk the
// same order.
func (c *Config) textFields() []stringField {
	return []stringField{
		{&c.Driver, DriverPostgres},
		{&c.Path, "foreman.db"},
		{&c.Host, "localhost"},
		{&c.Name, ""},
		{&c.User, ""},
		{&c.Password, ""},
		{&c.SSLMode, "disable"},
		{&c.ConnMaxLifetime, "15m"},
		{&c.ConnTimeout, "5s"},
	}
}

func (c *Config) numberFields() []intField {
	return []intField{
		{&c.Port, 5432},
		{&c.MaxOpenConns, 25},
		{&c.MaxIdleConns, 5},
	}
}

func (e *Env) textNames() []string {
	return []string{e.Driver, e.Path, e.Host, e.Name, e.User, e.Password, e.SSLMode, e.ConnMaxLifetime, e.ConnTimeout}
}

func (e *Env) numberNames() []string {
	return []string{e.Port, e.MaxOpenConns, e.MaxIdleConns}
}

func (c *Config) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Dsn returns the driver connection string: the file path for SQLite, a
// keyword/value string for PostgreSQL. Empty keywords are omitted and values
// containing spaces or quotes are quoted.
func (c *Config) Dsn() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}

	pairs := []struct{ key, value string }{
		{"host", c.Host},
		{"port", strconv.Itoa(c.Port)},
		{"dbname", c.Name},
		{"user", c.User},
		{"password", c.Password},
		{"sslmode", c.SSLMode},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value != "" {
			parts = append(parts, p.key+"="+dsnValue(p.value))
		}
	}
	return strings.Join(parts, " ")
}

func dsnValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + v + "'"
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
	theirs := overlay.textFields()
	for i, f := range c.textFields() {
		if v := *theirs[i].value; v != "" {
			*f.value = v
		}
	}

	theirInts := overlay.numberFields()
	for i, f := range c.numberFields() {
		if v := *theirInts[i].value; v != 0 {
			*f.value = v
		}
	}
}

func (c *Config) loadDefaults() {
	for _, f := range c.textFields() {
		if *f.value == "" {
			*f.value = f.def
		}
	}
	for _, f := range c.numberFields() {
		if *f.value == 0 {
			*f.value = f.def
		}
	}
}

func (c *Config) loadEnv(env *Env) {
	names := env.textNames()
	for i, f := range c.textFields() {
		if v := lookup(names[i]); v != "" {
			*f.value = v
		}
	}

	intNames := env.numberNames()
	for i, f := range c.numberFields() {
		if n, err := strconv.Atoi(lookup(intNames[i])); err == nil {
			*f.value = n
		}
	}
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.Name == "" {
			return fmt.Errorf("name required")
		}
		if c.User == "" {
			return fmt.Errorf("user required")
		}
		if !slices.Contains(sslModes, c.SSLMode) {
			return fmt.Errorf("invalid ssl_mode %q", c.SSLMode)
		}
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("path required")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}

	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("invalid pool size: max_open_conns %d, max_idle_conns %d", c.MaxOpenConns, c.MaxIdleConns)
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}
