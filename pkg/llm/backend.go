// Package llm defines the chat backend contract used by all agents and
// provides the concrete backends. Backends are thread-safe: concurrent
// Chat calls are allowed.
package llm

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation sent to a backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries an ordered message list plus extraction hints.
// JSONMode is advisory: backends forward it where the provider supports it,
// but callers must still pre-trim the response with ExtractJSON.
type ChatRequest struct {
	Messages  []Message
	JSONMode  bool
	MaxTokens int
}

// TokenUsage reports provider-side token consumption, when known.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ChatResponse is the raw result of one chat call.
type ChatResponse struct {
	Content string
	Model   string
	Usage   *TokenUsage // nil when the provider does not report usage
}

// Backend is the pluggable LLM provider contract.
type Backend interface {
	// Chat sends the conversation and returns the model's reply.
	// Rate limiting surfaces as a *RateLimitedError.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// HealthCheck reports whether the backend is reachable.
	HealthCheck(ctx context.Context) bool

	// Name returns a stable identifier for logging.
	Name() string
}
