package fetch

import (
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by CachedOnly when no fresh entry exists.
var ErrCacheMiss = errors.New("not in cache")

// RateLimitedError maps HTTP 429. Callers sleep RetryAfter before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ContentTooLargeError is returned when a response body exceeds the
// configured cap. Not retryable: the resource will not shrink.
type ContentTooLargeError struct {
	URL   string
	Limit int64
}

func (e *ContentTooLargeError) Error() string {
	return fmt.Sprintf("content too large fetching %s (limit %d bytes)", e.URL, e.Limit)
}

// HTTPStatusError is any non-2xx response other than 429.
type HTTPStatusError struct {
	Status int
	Reason string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Reason)
}
