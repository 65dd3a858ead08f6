// Package llm provides the provider-neutral contract for Large Language Model
// client implementations.
package llm

import (
	"context"
)

// Role represents the role of a message in a conversation.
type Role string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem Role = "system"
	// RoleUser indicates a message from the human user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant Role = "assistant"
)

// Provider identifies a backend an adapter normalizes requests for.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderOllama    Provider = "ollama"
)

const (
	// TemperatureDefault is the default temperature for planning and review calls.
	TemperatureDefault = 0.3

	// DefaultMaxTokens is the default output token budget per completion.
	DefaultMaxTokens = 4096
)

// PartType discriminates the members of a multi-part message content sequence.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one element of an ordered message content sequence. Exactly one of
// Text or ImageRef is meaningful, selected by Type.
type Part struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageRef string   `json:"image_ref,omitempty"`
}

// Message represents a single message in a completion request. Content holds
// plain text; Parts, when non-empty, supersedes Content and carries an ordered
// mix of text and image references. Insertion order is conversation order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Parts   []Part `json:"parts,omitempty"`
}

// Text flattens the message to plain text, joining part text and rendering
// image references as bracketed markers for providers without image support.
func (m *Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for i := range m.Parts {
		p := &m.Parts[i]
		if i > 0 {
			out += "\n"
		}
		switch p.Type {
		case PartText:
			out += p.Text
		case PartImage:
			out += "[image: " + p.ImageRef + "]"
		}
	}
	return out
}

// CompletionRequest represents a request to generate a completion. It is
// constructed fresh per call and never mutated after dispatch; retries resend
// the identical value.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// CompletionResponse represents a normalized response from a completion
// request. Raw carries provider-specific metadata the adapter chose to keep.
type CompletionResponse struct {
	Content    string            `json:"content"`
	StopReason string            `json:"stop_reason,omitempty"`
	Raw        map[string]string `json:"raw,omitempty"`
}

// Client defines the interface for language model interactions.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// ModelName returns the model identifier this client targets.
	ModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(model string, messages []Message) CompletionRequest {
	return CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// HasUserMessage reports whether the request carries at least one user message.
func HasUserMessage(in *CompletionRequest) bool {
	for i := range in.Messages {
		if in.Messages[i].Role == RoleUser {
			return true
		}
	}
	return false
}
