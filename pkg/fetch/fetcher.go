// Package fetch provides HTTP GET with a cooperative on-disk cache.
// Cached entries live under the raw/ tier of the data directory and are
// shared by every source client.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/metaforge/metaforge/pkg/config"
)

// Fetcher performs cached HTTP GETs with a body-size cap, typed status
// errors, and an inter-request delay per host to stay polite.
type Fetcher struct {
	cache   *diskCache
	http    *http.Client
	maxBody int64
	delay   time.Duration

	mu       sync.Mutex
	lastHit  map[string]time.Time // host -> last request time
	now      func() time.Time     // injectable clock for tests
	sleep    func(context.Context, time.Duration) error
}

// New builds a Fetcher storing its cache under cacheDir.
func New(cacheDir string, cfg config.FetchConfig) *Fetcher {
	return &Fetcher{
		cache:   &diskCache{root: cacheDir, ttl: cfg.CacheTTL()},
		http:    &http.Client{Timeout: cfg.RequestTimeout()},
		maxBody: cfg.MaxBodyBytes,
		delay:   cfg.RequestDelay(),
		lastHit: make(map[string]time.Time),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Get returns the body for url, serving from cache when fresh.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if body, meta, ok := f.cache.get(url, f.now()); ok {
		slog.Debug("Cache hit", "url", url, "fetched_at", meta.FetchedAt)
		return body, nil
	}
	return f.fetch(ctx, url)
}

// GetFresh bypasses the cache and always performs the GET. The response
// still refreshes the cache entry.
func (f *Fetcher) GetFresh(ctx context.Context, url string) ([]byte, error) {
	return f.fetch(ctx, url)
}

// CachedOnly returns the cached body without any network traffic.
func (f *Fetcher) CachedOnly(url string) ([]byte, error) {
	body, _, ok := f.cache.get(url, f.now())
	if !ok {
		return nil, ErrCacheMiss
	}
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.throttle(ctx, hostFor(url)); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "metaforge/1.0 (tournament meta tracker)")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		ra := 60 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return nil, &RateLimitedError{RetryAfter: ra}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &HTTPStatusError{Status: resp.StatusCode, Reason: resp.Status}
	}

	// Read one byte past the cap to distinguish "exactly at limit" from
	// "over limit".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, &ContentTooLargeError{URL: url, Limit: f.maxBody}
	}

	now := f.now()
	meta := &Meta{
		URL:           url,
		FetchedAt:     now,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: int64(len(body)),
		ETag:          resp.Header.Get("ETag"),
		LastModified:  resp.Header.Get("Last-Modified"),
		ExpiresAt:     now.Add(f.cache.ttl),
	}
	if err := f.cache.put(url, body, meta); err != nil {
		// A cache write failure must not fail the fetch.
		slog.Warn("Failed to write fetch cache", "url", url, "error", err)
	}

	slog.Debug("Fetched", "url", url, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// throttle enforces the inter-request delay for a host.
func (f *Fetcher) throttle(ctx context.Context, host string) error {
	f.mu.Lock()
	last, seen := f.lastHit[host]
	now := f.now()
	var wait time.Duration
	if seen {
		if elapsed := now.Sub(last); elapsed < f.delay {
			wait = f.delay - elapsed
		}
	}
	f.lastHit[host] = now.Add(wait)
	f.mu.Unlock()

	if wait > 0 {
		return f.sleep(ctx, wait)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
