package llm

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned when no balanced top-level JSON container is found.
var ErrNoJSON = errors.New("no JSON object or array in response")

// ExtractJSON trims model output to the first balanced top-level JSON
// object or array. Models wrap JSON in prose and markdown fences even when
// asked for JSON mode, so every agent runs its response through here before
// unmarshalling.
func ExtractJSON(s string) (string, error) {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			start, open, close = i, '{', '}'
		case '[':
			start, open, close = i, '[', ']'
		default:
			continue
		}
		break
	}
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}

// StripFences removes a leading/trailing markdown code fence if present.
// ExtractJSON tolerates fences on its own; this exists for callers that
// want the raw body of a fenced non-JSON response (e.g. refusal text).
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
