// Package agent implements the LLM-backed extraction agents. Each agent is
// a typed transformation from source material (article HTML, raw list text,
// a balance page) into structured records, with a shared retry loop and a
// shared JSON-mode call path.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/metaforge/metaforge/pkg/config"
	"github.com/metaforge/metaforge/pkg/llm"
)

// RetryPolicy governs how an agent retries transient backend failures.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy returns the stock policy: 3 retries, 1s initial delay,
// doubling per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialDelay: time.Second, BackoffMultiplier: 2.0}
}

// PolicyFromConfig derives a retry policy from the AI config section.
func PolicyFromConfig(cfg config.AIConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	return p
}

// runWithRetry retries fn on retryable backend errors (unavailable,
// timeout, rate-limited). A rate-limited error sleeps its Retry-After
// before the next attempt; everything else backs off exponentially.
// Parse failures, refusals, and I/O errors surface immediately.
func runWithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialDelay
	bo.Multiplier = policy.BackoffMultiplier
	bo.MaxElapsedTime = 0

	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}

		var rateLimited *llm.RateLimitedError
		if errors.As(err, &rateLimited) {
			select {
			case <-time.After(rateLimited.RetryAfter):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if llm.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(policy.MaxRetries)), ctx))
}

// execJSON runs one JSON-mode chat call with retries, trims the response to
// its first balanced JSON value, and unmarshals it into out.
func execJSON(ctx context.Context, backend llm.Backend, policy RetryPolicy, agentName, system, user string, maxTokens int, out any) error {
	log := slog.With("agent", agentName, "backend", backend.Name())

	req := llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		JSONMode:  true,
		MaxTokens: maxTokens,
	}

	var resp *llm.ChatResponse
	err := runWithRetry(ctx, policy, func() error {
		var chatErr error
		resp, chatErr = backend.Chat(ctx, req)
		return chatErr
	})
	if err != nil {
		return fmt.Errorf("%s chat failed: %w", agentName, err)
	}

	if resp.Usage != nil {
		log.Debug("Chat complete",
			"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	}

	raw, err := llm.ExtractJSON(resp.Content)
	if err != nil {
		parseErr := llm.NewResponseParseError(err, resp.Content)
		log.Warn("Discarding non-JSON response", "preview", parseErr.Preview)
		return parseErr
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		parseErr := llm.NewResponseParseError(err, raw)
		log.Warn("Discarding malformed JSON response", "preview", parseErr.Preview)
		return parseErr
	}
	return nil
}
