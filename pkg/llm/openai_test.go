package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompatServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenAICompatBackend) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewOpenAICompatBackend(srv.URL, "test-model", 5*time.Second)
}

func TestOpenAICompatChat(t *testing.T) {
	_, backend := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"ok":true}`}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5},
		})
	})

	resp, err := backend.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "extract"},
			{Role: RoleUser, Content: "data"},
		},
		JSONMode:  true,
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(12), resp.Usage.InputTokens)
}

func TestOpenAICompatRateLimited(t *testing.T) {
	_, backend := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := backend.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestOpenAICompatServerError(t *testing.T) {
	_, backend := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := backend.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestOpenAICompatGarbageResponse(t *testing.T) {
	_, backend := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	})

	_, err := backend.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	var pe *ResponseParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Preview, "not json")
}

func TestOpenAICompatHealthCheck(t *testing.T) {
	_, backend := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	assert.True(t, backend.HealthCheck(context.Background()))
}
