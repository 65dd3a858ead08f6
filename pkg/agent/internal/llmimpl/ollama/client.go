// Package ollama provides the Ollama adapter for the llm.Client interface.
// Ollama is a local LLM runtime that allows running open-source models.
package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
)

// Client wraps the Ollama API client to implement llm.Client.
type Client struct {
	client  *api.Client
	model   string
	hostURL string
}

// New creates a new Ollama client with a specific model.
// hostURL should be the Ollama server URL (e.g., "http://localhost:11434").
func New(hostURL, model string) llm.Client {
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}

	return &Client{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		hostURL: hostURL,
	}
}

// Complete implements the llm.Client interface.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		messages = append(messages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Text(),
		})
	}

	stream := false // Complete() never streams
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	result := llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: response.DoneReason,
		Raw: map[string]string{
			"provider": string(llm.ProviderOllama),
			"model":    response.Model,
		},
	}
	return result, nil
}

// ModelName returns the model identifier for this client.
func (o *Client) ModelName() string {
	return o.model
}

func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewWithCause(llmerrors.KindCancelled, err, "request cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "request timeout")
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch status := statusErr.StatusCode; {
		case status == 429:
			return llmerrors.NewWithStatus(llmerrors.KindRateLimit, status, "rate limit exceeded")
		case status >= 500:
			return llmerrors.NewWithStatus(llmerrors.KindTransient, status, "server error")
		case status >= 400:
			return llmerrors.NewWithStatus(llmerrors.KindRejected, status, statusErr.ErrorMessage)
		}
	}

	// Local runtime: connection refused usually means the server is not up yet.
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "eof") {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "ollama server unreachable")
	}

	return llmerrors.NewWithCause(llmerrors.KindUnknown, err, "unclassified error")
}
