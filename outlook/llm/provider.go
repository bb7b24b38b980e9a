// Package llm defines the chat-completion contract used by the agent harness.
package llm

import "context"

// Provider sends chat completions to a language model.
type Provider interface {
	// Name identifies the provider (e.g. "azure-openai").
	Name() string
	// Complete blocks until the full response is available.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// CompletionRequest is a provider-neutral chat request.
type CompletionRequest struct {
	Messages []Message
	// Temperature is sent only when set.
	Temperature *float64
	MaxTokens   int
	// Stop halts generation at any of these strings.
	Stop []string
}

// TokenUsage reports token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the first choice returned by the model.
type CompletionResponse struct {
	Content      string
	FinishReason string
	Model        string
	RequestID    string
	Usage        TokenUsage
}

// System builds a system message.
func System(content string) Message { return Message{Role: MessageRoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: MessageRoleUser, Content: content} }
