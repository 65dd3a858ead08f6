// Package timeout provides per-attempt timeout middleware for LLM clients.
package timeout

import (
	"context"
	"time"

	"agentcore/pkg/agent/llm"
)

// Middleware returns a middleware function that wraps an LLM client with
// per-request timeout logic. Each attempt gets its own timeout context so a
// hung request never blocks the retry loop above it.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()
				return next.Complete(timeoutCtx, req)
			},
			next.ModelName,
		)
	}
}
