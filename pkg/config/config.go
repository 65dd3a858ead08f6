// Package config provides configuration loading, validation, and credential
// handling for the orchestration engine. All state is carried by explicit
// Config values passed into constructors; there are no process-wide mutable
// defaults.
package config

import (
	"fmt"
	"time"
)

// Provider name constants, matching the adapter enum.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Known model identifiers used as routing defaults.
const (
	ModelClaudeSonnet = "claude-sonnet-4-5"
	ModelGPT5         = "gpt-5"
	ModelGeminiFlash  = "gemini-2.5-flash"
	ModelLlama        = "llama3.2"
)

// Dispatch defaults.
const (
	DefaultDispatchMaxAttempts = 3
	DefaultAttemptTimeoutMS    = 30_000
	DefaultBackoffBaseMS       = 1_000
	DefaultBackoffCapMS        = 15_000
)

// Poller defaults.
const (
	DefaultPollInitialIntervalMS = 5_000
	DefaultPollMaxIntervalMS     = 15_000
	DefaultPollGrowthFactor      = 1.5
	DefaultPollMaxAttempts       = 60
)

// Provider holds per-provider settings. APIKey is resolved at load time from
// the keystore or environment and never written back to disk by the engine.
type Provider struct {
	APIKeyEnv string `yaml:"api_key_env"` // env var / secret name holding the key
	APIKey    string `yaml:"-"`           // resolved key, memory only
	Model     string `yaml:"model"`       // default model for this provider
	Host      string `yaml:"host"`        // ollama only
}

// Dispatch holds retry and timeout settings for single LLM calls.
type Dispatch struct {
	MaxAttempts      int `yaml:"max_attempts"`
	AttemptTimeoutMS int `yaml:"attempt_timeout_ms"`
	BackoffBaseMS    int `yaml:"backoff_base_ms"`
	BackoffCapMS     int `yaml:"backoff_cap_ms"`
}

// AttemptTimeout returns the per-attempt timeout as a duration.
func (d *Dispatch) AttemptTimeout() time.Duration {
	return time.Duration(d.AttemptTimeoutMS) * time.Millisecond
}

// BackoffBase returns the initial retry delay as a duration.
func (d *Dispatch) BackoffBase() time.Duration {
	return time.Duration(d.BackoffBaseMS) * time.Millisecond
}

// BackoffCap returns the maximum retry delay as a duration.
func (d *Dispatch) BackoffCap() time.Duration {
	return time.Duration(d.BackoffCapMS) * time.Millisecond
}

// Poller holds remote-job polling settings.
type Poller struct {
	Endpoint          string  `yaml:"endpoint"` // base URL of the async-execution service
	InitialIntervalMS int     `yaml:"initial_interval_ms"`
	MaxIntervalMS     int     `yaml:"max_interval_ms"`
	GrowthFactor      float64 `yaml:"growth_factor"`
	MaxAttempts       int     `yaml:"max_attempts"`
	Simulate          bool    `yaml:"simulate"` // explicit opt-in to the local fallback path
}

// InitialInterval returns the starting poll interval as a duration.
func (p *Poller) InitialInterval() time.Duration {
	return time.Duration(p.InitialIntervalMS) * time.Millisecond
}

// MaxInterval returns the poll interval cap as a duration.
func (p *Poller) MaxInterval() time.Duration {
	return time.Duration(p.MaxIntervalMS) * time.Millisecond
}

// Agent describes one role-tagged pipeline participant.
type Agent struct {
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`     // architect, frontend, backend, testing, devops, custom
	Provider string `yaml:"provider"` // which provider entry serves this agent
	Model    string `yaml:"model"`    // optional override of the provider default
}

// Config is the root configuration object.
type Config struct {
	Providers     map[string]Provider `yaml:"providers"`
	Agents        []Agent             `yaml:"agents"`
	Dispatch      Dispatch            `yaml:"dispatch"`
	Poller        Poller              `yaml:"poller"`
	PrometheusURL string              `yaml:"prometheus_url"`
	DatabasePath  string              `yaml:"database_path"`
}

// Default returns a Config populated with engine defaults and no providers.
func Default() *Config {
	return &Config{
		Providers: make(map[string]Provider),
		Dispatch: Dispatch{
			MaxAttempts:      DefaultDispatchMaxAttempts,
			AttemptTimeoutMS: DefaultAttemptTimeoutMS,
			BackoffBaseMS:    DefaultBackoffBaseMS,
			BackoffCapMS:     DefaultBackoffCapMS,
		},
		Poller: Poller{
			InitialIntervalMS: DefaultPollInitialIntervalMS,
			MaxIntervalMS:     DefaultPollMaxIntervalMS,
			GrowthFactor:      DefaultPollGrowthFactor,
			MaxAttempts:       DefaultPollMaxAttempts,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	for name, p := range c.Providers {
		switch name {
		case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama:
		default:
			return fmt.Errorf("unknown provider %q", name)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %q has no default model", name)
		}
		if name == ProviderOllama && p.Host == "" {
			return fmt.Errorf("ollama provider requires a host URL")
		}
	}
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.Name == "" {
			return fmt.Errorf("agent %d has no name", i)
		}
		if _, ok := c.Providers[a.Provider]; !ok {
			return fmt.Errorf("agent %q references unknown provider %q", a.Name, a.Provider)
		}
	}
	if c.Dispatch.MaxAttempts <= 0 {
		return fmt.Errorf("dispatch max_attempts must be positive")
	}
	if c.Poller.GrowthFactor < 1.0 {
		return fmt.Errorf("poller growth_factor must be >= 1.0")
	}
	return nil
}

// ModelFor returns the model identifier an agent should use.
func (c *Config) ModelFor(agent *Agent) string {
	if agent.Model != "" {
		return agent.Model
	}
	return c.Providers[agent.Provider].Model
}
