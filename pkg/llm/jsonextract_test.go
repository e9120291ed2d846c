package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"bare array", `[1,2,3]`, `[1,2,3]`},
		{"prose wrapped", `Here is the data you asked for: {"a":1} hope it helps!`, `{"a":1}`},
		{"markdown fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"nested braces", `{"a":{"b":[1,{"c":2}]}}`, `{"a":{"b":[1,{"c":2}]}}`},
		{"braces in strings", `{"note":"use {curly} and \"quoted\" text"}`, `{"note":"use {curly} and \"quoted\" text"}`},
		{"trailing junk after close", `{"a":1}} extra`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONNoContainer(t *testing.T) {
	_, err := ExtractJSON("I'm sorry, I can't help with that.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractJSON(`{"unterminated": true`)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "hello", StripFences("```\nhello\n```"))
	assert.Equal(t, "hello", StripFences("```text\nhello\n```"))
	assert.Equal(t, "plain", StripFences("plain"))
}

func TestPreviewBounded(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	p := Preview(string(long))
	assert.LessOrEqual(t, len(p), previewLimit+len("…"))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrBackendUnavailable))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(&RateLimitedError{}))
	assert.False(t, IsRetryable(ErrExtractionRefused))
	assert.False(t, IsRetryable(NewResponseParseError(ErrNoJSON, "x")))
	assert.False(t, IsRetryable(nil))
}
