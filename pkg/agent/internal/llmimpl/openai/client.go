// Package openai provides the OpenAI adapter for the llm.Client interface
// using the official OpenAI Go package.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
)

// Client wraps the official OpenAI Go client to implement llm.Client.
type Client struct {
	client openai.Client
	model  string
}

// New creates a new OpenAI client for the given model (raw client, middleware
// applied at a higher level).
func New(apiKey, model string) llm.Client {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client: client,
		model:  model,
	}
}

// Complete implements the llm.Client interface via the Chat Completions API.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Text()))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Text()))
		default:
			messages = append(messages, openai.UserMessage(msg.Text()))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(in.MaxTokens)),
		Temperature:         openai.Float(float64(in.Temperature)),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.KindTransient, "received empty response from OpenAI API")
	}

	// First candidate's message content is the normalized result.
	choice := &resp.Choices[0]
	return llm.CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Raw: map[string]string{
			"provider": string(llm.ProviderOpenAI),
			"model":    resp.Model,
			"id":       resp.ID,
		},
	}, nil
}

// ModelName returns the model identifier for this client.
func (c *Client) ModelName() string {
	return c.model
}

func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewWithCause(llmerrors.KindCancelled, err, "request cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "request timeout")
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch status := apiErr.StatusCode; {
		case status == 429:
			return llmerrors.NewWithStatus(llmerrors.KindRateLimit, status, "rate limit exceeded")
		case status >= 500:
			return llmerrors.NewWithStatus(llmerrors.KindTransient, status, "server error")
		case status >= 400:
			return llmerrors.NewWithStatus(llmerrors.KindRejected, status, fmt.Sprintf("request rejected: %s", apiErr.Message))
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "eof") {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "network or connection error")
	}

	return llmerrors.NewWithCause(llmerrors.KindUnknown, err, "unclassified error")
}
