package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Meta is the sidecar record stored next to each cached blob.
type Meta struct {
	URL           string    `json:"url"`
	FetchedAt     time.Time `json:"fetched_at"`
	ContentType   string    `json:"content_type,omitempty"`
	ContentLength int64     `json:"content_length"`
	ETag          string    `json:"etag,omitempty"`
	LastModified  string    `json:"last_modified,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// diskCache lays out cached responses as
// <root>/<host>/<urlhash16>.<ext> plus <urlhash16>.meta.json.
// The cache is content-indexed by the URL string: distinct URL spellings
// get distinct entries even when they resolve to the same resource.
type diskCache struct {
	root string
	ttl  time.Duration
}

// cacheKey is the 16-hex-char SHA-256 prefix of the raw URL string.
func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16]
}

// extFor derives the on-disk extension from the URL path.
func extFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".html"
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".pdf":
		return ".pdf"
	case ".json":
		return ".json"
	case ".xml":
		return ".xml"
	}
	return ".html"
}

// hostFor extracts the host directory component, with a fallback for
// unparseable URLs so cache writes never fail on layout.
func hostFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown-host"
	}
	return u.Host
}

func (c *diskCache) blobPath(rawURL string) string {
	return filepath.Join(c.root, hostFor(rawURL), cacheKey(rawURL)+extFor(rawURL))
}

func (c *diskCache) metaPath(rawURL string) string {
	return filepath.Join(c.root, hostFor(rawURL), cacheKey(rawURL)+".meta.json")
}

// get returns the cached body if both files exist and the entry is fresh.
func (c *diskCache) get(rawURL string, now time.Time) ([]byte, *Meta, bool) {
	metaRaw, err := os.ReadFile(c.metaPath(rawURL))
	if err != nil {
		return nil, nil, false
	}
	var meta Meta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, nil, false
	}
	if now.Sub(meta.FetchedAt) >= c.ttl {
		return nil, nil, false
	}
	body, err := os.ReadFile(c.blobPath(rawURL))
	if err != nil {
		return nil, nil, false
	}
	return body, &meta, true
}

// put writes the body and sidecar atomically: tmp file then rename, so a
// crashed write never leaves a partial entry that readers could open.
func (c *diskCache) put(rawURL string, body []byte, meta *Meta) error {
	dir := filepath.Dir(c.blobPath(rawURL))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	if err := atomicWrite(c.blobPath(rawURL), body); err != nil {
		return fmt.Errorf("failed to write cache blob: %w", err)
	}

	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal cache meta: %w", err)
	}
	if err := atomicWrite(c.metaPath(rawURL), metaRaw); err != nil {
		return fmt.Errorf("failed to write cache meta: %w", err)
	}
	return nil
}

// atomicWrite writes to a tmp file in the target directory and renames it
// into place.
func atomicWrite(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}
