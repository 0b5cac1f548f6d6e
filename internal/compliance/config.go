package compliance

import "os"

// Config selects the protocol file loaded at startup.
type Config struct {
	ProtocolFile string `toml:"protocol_file"`
}

// Env maps config fields to environment variable names.
type Env struct {
	ProtocolFile string
}

// Finalize applies environment overrides. An empty ProtocolFile selects the
// built-in rules.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		if v := os.Getenv(env.ProtocolFile); v != "" {
			c.ProtocolFile = v
		}
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ProtocolFile != "" {
		c.ProtocolFile = overlay.ProtocolFile
	}
}

// Load returns the registry selected by c.
func (c *Config) Load() (*Registry, error) {
	return LoadRegistry(c.ProtocolFile)
}
