package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentName         = "FOREMAN_AGENT_NAME"
	EnvAgentProviderName = "FOREMAN_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "FOREMAN_AGENT_BASE_URL"
	EnvAgentToken        = "FOREMAN_AGENT_TOKEN"
	EnvAgentDeployment   = "FOREMAN_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "FOREMAN_AGENT_API_VERSION"
	EnvAgentAuthType     = "FOREMAN_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "FOREMAN_AGENT_MODEL_NAME"
)

// DefaultAgentName names the vision judge when the config leaves it blank.
const DefaultAgentName = "foreman-vision"

// agentOptions maps environment variables to provider option keys.
var agentOptions = []struct {
	env string
	key string
}{
	{EnvAgentToken, "token"},
	{EnvAgentDeployment, "deployment"},
	{EnvAgentAPIVersion, "api_version"},
	{EnvAgentAuthType, "auth_type"},
}

// FinalizeAgent prepares the go-agents config behind the vision judge used by
// comprehensive and production validation. go-agents defaults fill unset
// fields, environment variables override them, and the result is validated.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	loadAgentDefaults(c)
	loadAgentEnv(c)
	return validateAgent(c)
}

func loadAgentDefaults(c *gaconfig.AgentConfig) {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults

	if c.Name == "" {
		c.Name = DefaultAgentName
	}
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if v := os.Getenv(EnvAgentName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}
	for _, opt := range agentOptions {
		if v := os.Getenv(opt.env); v != "" {
			c.Provider.Options[opt.key] = v
		}
	}
}

func validateAgent(c *gaconfig.AgentConfig) error {
	if c.Name == "" {
		return errors.New("agent name required")
	}
	if c.Provider.Name == "" {
		return errors.New("provider name required")
	}
	return nil
}
