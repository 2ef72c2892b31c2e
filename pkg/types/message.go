// Package types defines the shared data types exchanged between the
// pipeline stages, the LLM providers, and the CLI event display.
package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	// RoleSystem is a system instruction message.
	RoleSystem MessageRole = "system"

	// RoleUser is a message authored by the user (or the pipeline on the
	// user's behalf).
	RoleUser MessageRole = "user"

	// RoleAssistant is a message authored by the LLM.
	RoleAssistant MessageRole = "assistant"
)

// Message is a single conversation message sent to or received from an
// LLM provider.
type Message struct {
	// Role indicates who authored the message.
	Role MessageRole `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`

	// Usage carries the token usage the provider reported for the
	// completion that produced this message. Nil for messages built
	// locally and for providers that do not report usage.
	Usage *TokenUsage `json:"usage,omitempty"`
}

// NewSystemMessage creates a system instruction message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// ModelInfo describes the LLM model behind a provider.
type ModelInfo struct {
	// Provider is the provider identifier (e.g. "anthropic", "openai").
	Provider string

	// Name is the model name (e.g. "claude-3-7-sonnet-20250219").
	Name string

	// MaxTokens is the model's context window size in tokens.
	MaxTokens int

	// SupportsStreaming indicates whether the provider streams responses.
	SupportsStreaming bool

	// Metadata holds provider-specific extras (base URL overrides, etc).
	Metadata map[string]interface{}
}

// TokenUsage contains token usage statistics from an LLM API call.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the input/prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens in the generated response.
	CompletionTokens int

	// TotalTokens is the total number of tokens used (prompt + completion).
	TotalTokens int
}
