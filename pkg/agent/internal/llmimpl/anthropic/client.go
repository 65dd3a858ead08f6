// Package anthropic provides the Anthropic Claude adapter for the llm.Client interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
)

// Client wraps the Anthropic API client to implement llm.Client.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a new Claude client for the given model (raw client, middleware
// applied at a higher level).
func New(apiKey, model string) llm.Client {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client: client,
		model:  anthropic.Model(model),
	}
}

// ensureAlternation prepares messages for Anthropic API requirements:
// system messages move to the top-level system parameter, consecutive user
// messages merge, and the sequence must end with a user message.
func ensureAlternation(messages []llm.Message) (systemPrompt string, alternating []llm.Message, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var rest []llm.Message
	for i := range messages {
		msg := &messages[i]
		if msg.Role == llm.RoleSystem {
			systemParts = append(systemParts, msg.Text())
		} else {
			rest = append(rest, *msg)
		}
	}
	systemPrompt = strings.Join(systemParts, "\n\n")

	if len(rest) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}

	// Merge consecutive non-assistant messages into single user messages.
	var merged []llm.Message
	var userParts []string
	for i := range rest {
		msg := &rest[i]
		if msg.Role == llm.RoleAssistant {
			if len(userParts) > 0 {
				merged = append(merged, llm.Message{Role: llm.RoleUser, Content: strings.Join(userParts, "\n\n")})
				userParts = nil
			}
			merged = append(merged, *msg)
		} else {
			userParts = append(userParts, msg.Text())
		}
	}
	if len(userParts) > 0 {
		merged = append(merged, llm.Message{Role: llm.RoleUser, Content: strings.Join(userParts, "\n\n")})
	}

	for i := range merged {
		if i > 0 && merged[i].Role == merged[i-1].Role {
			return "", nil, fmt.Errorf("alternation violation at index %d: consecutive %s messages", i, merged[i].Role)
		}
	}
	if merged[0].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", merged[0].Role)
	}
	if merged[len(merged)-1].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", merged[len(merged)-1].Role)
	}

	return systemPrompt, merged, nil
}

// Complete implements the llm.Client interface.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	systemPrompt, alternating, err := ensureAlternation(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.KindRejected, fmt.Sprintf("message alternation error: %v", err))
	}

	messages := make([]anthropic.MessageParam, 0, len(alternating))
	for i := range alternating {
		msg := &alternating[i]
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Text())},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.KindTransient, "received empty response from Claude API")
	}

	// Extract text from the first candidate's content blocks.
	var responseText string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			textBlock := block.AsText()
			responseText += textBlock.Text
		}
	}

	return llm.CompletionResponse{
		Content:    responseText,
		StopReason: string(resp.StopReason),
		Raw: map[string]string{
			"provider": string(llm.ProviderAnthropic),
			"model":    string(resp.Model),
			"id":       resp.ID,
		},
	}, nil
}

// ModelName returns the model identifier for this client.
func (c *Client) ModelName() string {
	return string(c.model)
}

// classifyError maps Anthropic SDK errors to the structured error taxonomy.
func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewWithCause(llmerrors.KindCancelled, err, "request cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "request timeout")
	}

	errStr := err.Error()
	switch statusCode := extractStatusCode(errStr); {
	case statusCode == 429:
		return llmerrors.NewWithStatus(llmerrors.KindRateLimit, statusCode, "rate limit exceeded")
	case statusCode >= 500:
		return llmerrors.NewWithStatus(llmerrors.KindTransient, statusCode, "server error")
	case statusCode >= 400:
		return llmerrors.NewWithStatus(llmerrors.KindRejected, statusCode, "request rejected by provider")
	}

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "temporary") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "reset") {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "network or connection error")
	}
	if strings.Contains(strings.ToLower(errStr), "rate") ||
		strings.Contains(strings.ToLower(errStr), "quota") {
		return llmerrors.NewWithCause(llmerrors.KindRateLimit, err, "rate limiting detected")
	}

	return llmerrors.NewWithCause(llmerrors.KindUnknown, err, "unclassified error")
}

// extractStatusCode attempts to extract an HTTP status code from an error
// string. The Anthropic SDK includes status codes in error messages.
func extractStatusCode(errStr string) int {
	patterns := []string{"status code: ", "status: ", "HTTP ", "code "}
	codes := map[string]int{
		"400": 400, "401": 401, "403": 403, "404": 404, "429": 429,
		"500": 500, "502": 502, "503": 503, "504": 504,
	}

	lower := strings.ToLower(errStr)
	for _, pattern := range patterns {
		idx := strings.Index(lower, strings.ToLower(pattern))
		if idx == -1 {
			continue
		}
		start := idx + len(pattern)
		if start+3 > len(errStr) {
			continue
		}
		if code, ok := codes[errStr[start:start+3]]; ok {
			return code
		}
	}
	return 0
}
