// Package google provides the Google Gemini adapter for the llm.Client interface.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
)

// Client wraps the Google GenAI client to implement llm.Client.
type Client struct {
	client  *genai.Client
	initOne sync.Once
	initErr error
	apiKey  string
	model   string
}

// New creates a new Gemini client for the given model. Client creation
// requires a context, so it is deferred to the first Complete call.
func New(apiKey, model string) llm.Client {
	return &Client{
		client: nil,
		apiKey: apiKey,
		model:  model,
	}
}

// Complete implements the llm.Client interface.
func (g *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	g.initOne.Do(func() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			g.initErr = llmerrors.NewWithCause(llmerrors.KindConfiguration, err, "failed to create Gemini client")
			return
		}
		g.client = client
	})
	if g.initErr != nil {
		return llm.CompletionResponse{}, g.initErr
	}

	contents, systemInstruction, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.KindRejected, fmt.Sprintf("message conversion error: %v", err))
	}

	temperature := in.Temperature
	//nolint:gosec // MaxTokens validated at higher layer, overflow acceptable
	maxTokens := int32(in.MaxTokens)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxTokens,
	}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.KindTransient, "empty response from Gemini API")
	}

	response := llm.CompletionResponse{
		Content: result.Text(),
		Raw: map[string]string{
			"provider": string(llm.ProviderGoogle),
			"model":    g.model,
		},
	}
	if result.Candidates[0].FinishReason != "" {
		response.StopReason = string(result.Candidates[0].FinishReason)
	}
	return response, nil
}

// ModelName returns the model identifier for this client.
func (g *Client) ModelName() string {
	return g.model
}

// convertMessages converts the neutral message format to Gemini's Content
// format. System messages become the system instruction.
func convertMessages(messages []llm.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	var systemInstruction string
	var contents []*genai.Content

	for i := range messages {
		msg := &messages[i]

		if msg.Role == llm.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Text()
			} else {
				systemInstruction = msg.Text()
			}
			continue
		}

		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Text()}},
		})
	}

	if len(contents) == 0 {
		return nil, "", fmt.Errorf("must have at least one non-system message")
	}
	return contents, systemInstruction, nil
}

func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewWithCause(llmerrors.KindCancelled, err, "request cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "request timeout")
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch status := apiErr.Code; {
		case status == 429:
			return llmerrors.NewWithStatus(llmerrors.KindRateLimit, status, "rate limit exceeded")
		case status >= 500:
			return llmerrors.NewWithStatus(llmerrors.KindTransient, status, "server error")
		case status >= 400:
			return llmerrors.NewWithStatus(llmerrors.KindRejected, status, fmt.Sprintf("request rejected: %s", apiErr.Message))
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection") {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "network or connection error")
	}

	return llmerrors.NewWithCause(llmerrors.KindUnknown, err, "unclassified error")
}
