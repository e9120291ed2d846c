package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend talks to the Anthropic Messages API via the official SDK.
// The zero value is not usable; construct with NewAnthropicBackend.
type AnthropicBackend struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicBackend builds a backend from ANTHROPIC_API_KEY.
func NewAnthropicBackend(model string) (*AnthropicBackend, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	return &AnthropicBackend{
		client: anthropic.NewClient(option.WithAPIKey(key)),
		model:  anthropic.Model(model),
	}, nil
}

// Name implements Backend.
func (b *AnthropicBackend) Name() string { return "anthropic/" + string(b.model) }

// Chat implements Backend. The system message, if any, is lifted into the
// Messages API system parameter; JSON mode has no provider-side switch here,
// so it is encoded into the prompt by the agents instead.
func (b *AnthropicBackend) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     b.model,
		MaxTokens: maxTokens,
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	if len(msg.Content) == 0 {
		return nil, NewResponseParseError(errors.New("no content blocks"), "")
	}
	block := msg.Content[0]
	if block.Type != "text" {
		return nil, NewResponseParseError(fmt.Errorf("unexpected block type %s", block.Type), "")
	}

	return &ChatResponse{
		Content: block.Text,
		Model:   string(msg.Model),
		Usage: &TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

// HealthCheck implements Backend with a minimal one-token round trip.
func (b *AnthropicBackend) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     b.model,
		MaxTokens: 1,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("ping"))},
	})
	return err == nil
}

// classifyAnthropicError maps SDK errors onto the backend error taxonomy.
func classifyAnthropicError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			// The SDK does not surface Retry-After cleanly; use the
			// provider-documented default.
			return &RateLimitedError{RetryAfter: 60 * time.Second}
		case apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", ErrBackendUnavailable, apiErr.StatusCode)
		}
		return fmt.Errorf("anthropic api error: %w", err)
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
