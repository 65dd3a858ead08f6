// Package dispatch sends single completion requests to one of several
// interchangeable LLM backends with uniform retry, timeout, and failure
// classification.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
	"agentcore/pkg/agent/middleware/timeout"
	"agentcore/pkg/logx"
)

// Budget bounds a single dispatch: total attempts and per-attempt timeout.
type Budget struct {
	MaxAttempts       int           // total attempts, including the first
	TimeoutPerAttempt time.Duration // cancellation source internal to the dispatcher
}

// DefaultBudget provides the standard dispatch budget.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultBudget = Budget{
	MaxAttempts:       3,
	TimeoutPerAttempt: 30 * time.Second,
}

// route maps a model identifier prefix to the provider that serves it.
// First match wins; the table is data, not code.
type route struct {
	prefix   string
	provider llm.Provider
}

//nolint:gochecknoglobals // Static routing table
var routeTable = []route{
	{"claude", llm.ProviderAnthropic},
	{"gpt", llm.ProviderOpenAI},
	{"o3", llm.ProviderOpenAI},
	{"o4", llm.ProviderOpenAI},
	{"gemini", llm.ProviderGoogle},
}

// ProviderForModel resolves a model identifier to its provider. Models with
// no table entry fall through to the local Ollama runtime.
func ProviderForModel(model string) llm.Provider {
	for _, r := range routeTable {
		if strings.HasPrefix(model, r.prefix) {
			return r.provider
		}
	}
	return llm.ProviderOllama
}

// Dispatcher routes completion requests to provider clients and retries
// transient failures with exponential backoff. It holds no per-request state;
// one Dispatcher may serve many concurrent pipelines.
type Dispatcher struct {
	clients     map[llm.Provider]llm.Client
	backoffBase time.Duration
	backoffCap  time.Duration
	logger      *logx.Logger
}

// New creates a Dispatcher over the given provider clients. A provider with a
// nil client entry is treated as configured-but-missing-credential and fails
// fast at dispatch time.
func New(clients map[llm.Provider]llm.Client, backoffBase, backoffCap time.Duration) *Dispatcher {
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if backoffCap <= 0 {
		backoffCap = 15 * time.Second
	}
	return &Dispatcher{
		clients:     clients,
		backoffBase: backoffBase,
		backoffCap:  backoffCap,
		logger:      logx.NewLogger("dispatch"),
	}
}

// Dispatch sends one completion request within the given budget. The request
// is never mutated; every retry resends the identical value. Cancellation of
// ctx aborts the in-flight attempt and resolves with a cancelled error that
// is never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, req llm.CompletionRequest, budget Budget) (llm.CompletionResponse, error) {
	if budget.MaxAttempts <= 0 {
		budget.MaxAttempts = DefaultBudget.MaxAttempts
	}
	if budget.TimeoutPerAttempt <= 0 {
		budget.TimeoutPerAttempt = DefaultBudget.TimeoutPerAttempt
	}

	if req.Model == "" {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.KindConfiguration, "request has no model identifier")
	}
	if !llm.HasUserMessage(&req) {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.KindRejected, "request must contain at least one user message")
	}

	provider := ProviderForModel(req.Model)
	client, ok := d.clients[provider]
	if !ok || client == nil {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.KindConfiguration,
			fmt.Sprintf("no API key configured for provider %s (model %s)", provider, req.Model))
	}

	// Per-attempt timeout is a middleware so each attempt gets a fresh deadline.
	attemptClient := llm.Chain(client, timeout.Middleware(budget.TimeoutPerAttempt))

	var lastErr error
	for attempt := 0; attempt < budget.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := d.backoffDelay(attempt - 1)
			select {
			case <-ctx.Done():
				return llm.CompletionResponse{}, llmerrors.NewWithCause(llmerrors.KindCancelled, ctx.Err(), "dispatch cancelled during backoff")
			case <-time.After(delay):
			}
		}

		start := time.Now()
		resp, err := attemptClient.Complete(ctx, req)
		if err == nil {
			d.logger.Debug("dispatch succeeded: model=%s attempts=%d in %v", req.Model, attempt+1, time.Since(start))
			return resp, nil
		}
		lastErr = err

		// Caller cancellation beats any classification the adapter produced.
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return llm.CompletionResponse{}, llmerrors.NewWithCause(llmerrors.KindCancelled, err, "dispatch cancelled")
		}
		if llmerrors.IsCancelled(err) {
			return llm.CompletionResponse{}, err
		}

		if !isRetryable(err) {
			return llm.CompletionResponse{}, err
		}

		d.logger.Debug("dispatch attempt %d/%d failed: model=%s err=%v", attempt+1, budget.MaxAttempts, req.Model, err)
	}

	return llm.CompletionResponse{}, fmt.Errorf("dispatch failed after %d attempts: %w", budget.MaxAttempts, lastErr)
}

// backoffDelay computes base * 2^attempt capped at the configured maximum.
func (d *Dispatcher) backoffDelay(attempt int) time.Duration {
	delay := d.backoffBase << uint(attempt) //nolint:gosec // attempt is loop-bounded
	if delay > d.backoffCap || delay <= 0 {
		delay = d.backoffCap
	}
	return delay
}

// isRetryable reports whether a dispatch error is a transient failure worth
// retrying. Only classified transient and rate-limit kinds qualify; anything
// unclassified propagates to the caller unchanged.
func isRetryable(err error) bool {
	var cerr *llmerrors.Error
	if errors.As(err, &cerr) {
		return cerr.IsRetryable()
	}
	// Per-attempt timeouts surface as deadline errors when an adapter did not
	// classify them.
	return errors.Is(err, context.DeadlineExceeded)
}
