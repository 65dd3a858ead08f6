// Package agent provides LLM client construction with middleware chains.
package agent

import (
	"agentcore/pkg/agent/internal/llmimpl/anthropic"
	"agentcore/pkg/agent/internal/llmimpl/google"
	"agentcore/pkg/agent/internal/llmimpl/ollama"
	"agentcore/pkg/agent/internal/llmimpl/openai"
	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/middleware/metrics"
	"agentcore/pkg/config"
)

// NewClientSet builds one middleware-wrapped client per configured provider.
// Providers that require an API key and have none resolved get no entry, so
// dispatches to them fail fast with a configuration error instead of reaching
// the wire. The metrics middleware wraps every client; pass metrics.Nop() to
// disable recording.
func NewClientSet(cfg *config.Config, recorder metrics.Recorder, runID string) map[llm.Provider]llm.Client {
	if recorder == nil {
		recorder = metrics.Nop()
	}

	clients := make(map[llm.Provider]llm.Client)
	for name, p := range cfg.Providers {
		var base llm.Client
		switch name {
		case config.ProviderAnthropic:
			if p.APIKey == "" {
				continue
			}
			base = anthropic.New(p.APIKey, p.Model)
		case config.ProviderOpenAI:
			if p.APIKey == "" {
				continue
			}
			base = openai.New(p.APIKey, p.Model)
		case config.ProviderGoogle:
			if p.APIKey == "" {
				continue
			}
			base = google.New(p.APIKey, p.Model)
		case config.ProviderOllama:
			base = ollama.New(p.Host, p.Model)
		default:
			continue
		}

		provider := llm.Provider(name)
		clients[provider] = llm.Chain(base, metrics.Middleware(recorder, nil, provider, runID))
	}

	return clients
}
