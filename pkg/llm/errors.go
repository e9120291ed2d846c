package llm

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBackendUnavailable is returned when the provider cannot be reached
	// or answers with a server-side failure. Retryable.
	ErrBackendUnavailable = errors.New("llm backend unavailable")

	// ErrTimeout is returned when a chat call exceeds its deadline. Retryable.
	ErrTimeout = errors.New("llm call timed out")

	// ErrExtractionRefused is returned when the model declines the task.
	// Not retryable: the same prompt will be refused again.
	ErrExtractionRefused = errors.New("model refused extraction")
)

// RateLimitedError signals HTTP 429 from the provider. The agent retry loop
// sleeps RetryAfter before the next attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// previewLimit bounds how much of a bad response ends up in logs and errors.
const previewLimit = 500

// ResponseParseError reports unparseable model output together with a
// bounded-length preview for diagnostics. Not retryable.
type ResponseParseError struct {
	Cause   error
	Preview string
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse model response: %v (preview: %q)", e.Cause, e.Preview)
}

func (e *ResponseParseError) Unwrap() error { return e.Cause }

// NewResponseParseError builds a ResponseParseError, truncating the raw
// response to the preview limit.
func NewResponseParseError(cause error, raw string) *ResponseParseError {
	return &ResponseParseError{Cause: cause, Preview: Preview(raw)}
}

// Preview truncates s to the bounded preview length for logging.
func Preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "…"
}

// IsRetryable reports whether an error should be retried by the agent
// retry loop. Parse failures, refusals, and I/O errors surface immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return true
	}
	return errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrTimeout)
}
