package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config files.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a YAML config file, substitutes ${ENV_VAR} placeholders,
// resolves provider API keys through the given keystore, and validates the
// result. A nil keystore resolves keys from the environment only.
func Load(path string, keystore *Keystore) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.ResolveKeys(keystore); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveKeys fills in provider API keys from the keystore with environment
// fallback. Ollama needs no key; all other providers without one are left
// empty so the dispatcher can fail fast with a configuration error.
func (c *Config) ResolveKeys(keystore *Keystore) error {
	for name, p := range c.Providers {
		if name == ProviderOllama {
			continue
		}
		envName := p.APIKeyEnv
		if envName == "" {
			envName = defaultKeyEnv(name)
		}
		if keystore != nil {
			if key, err := keystore.Get(envName); err == nil {
				p.APIKey = key
				c.Providers[name] = p
				continue
			}
		}
		p.APIKey = os.Getenv(envName)
		c.Providers[name] = p
	}
	return nil
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
