// Package metrics provides metrics middleware for LLM clients.
package metrics

import (
	"context"
	"time"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
	"agentcore/pkg/utils"
)

// UsageExtractor is a function that extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor estimates token usage with tiktoken. Providers report
// exact usage in different shapes; the estimate keeps dashboards comparable
// across backends.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Text() + "\n"
	}
	return utils.CountTokensSimple(promptText), utils.CountTokensSimple(resp.Content)
}

// Middleware returns a middleware function that records metrics for LLM
// operations: request latency, token usage, success/failure, and error kinds.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, provider llm.Provider, runID string) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				errorKind := ""
				if err != nil {
					errorKind = llmerrors.KindOf(err).String()
				}

				recorder.ObserveRequest(
					string(provider),
					next.ModelName(),
					runID,
					promptTokens,
					completionTokens,
					err == nil,
					errorKind,
					duration,
				)

				return resp, err
			},
			next.ModelName,
		)
	}
}
