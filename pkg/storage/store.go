// Package storage persists normalized entities as per-epoch JSONL files
// under the data directory:
//
//	<data>/raw/...                              fetcher cache (owned by pkg/fetch)
//	<data>/normalized/<epoch_id>/events.jsonl
//	<data>/normalized/<epoch_id>/placements.jsonl
//	<data>/normalized/<epoch_id>/army_lists.jsonl
//	<data>/normalized/<epoch_id>/pairings.jsonl
//	<data>/normalized/significant_events.jsonl
//	<data>/normalized/reviews.jsonl
//
// Writes are append-only under single-writer semantics. Reads deduplicate
// by id, keeping the last occurrence, and tolerate partial tail lines by
// discarding anything that does not deserialize.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// File names per entity type inside an epoch directory.
const (
	fileEvents     = "events.jsonl"
	filePlacements = "placements.jsonl"
	fileLists      = "army_lists.jsonl"
	filePairings   = "pairings.jsonl"

	fileSignificant = "significant_events.jsonl"
	fileReviews     = "reviews.jsonl"
)

// Store is a filesystem-backed entity store rooted at a data directory.
type Store struct {
	dataDir string
}

// New creates a Store rooted at dataDir, creating the normalized tier.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, "normalized"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

// DataDir returns the store root.
func (s *Store) DataDir() string { return s.dataDir }

// RawDir returns the fetcher cache tier.
func (s *Store) RawDir() string { return filepath.Join(s.dataDir, "raw") }

func (s *Store) normalizedDir() string { return filepath.Join(s.dataDir, "normalized") }

func (s *Store) epochDir(epochID string) string {
	return filepath.Join(s.normalizedDir(), epochID)
}

// ListEpochDirs returns the epoch directory names present on disk,
// excluding backups left behind by the repartitioner.
func (s *Store) ListEpochDirs() ([]string, error) {
	entries, err := os.ReadDir(s.normalizedDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list epoch dirs: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasSuffix(e.Name(), ".bak") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// RenameEpochDir renames an epoch directory to <name>.bak after a
// successful repartition. Existing backups are replaced.
func (s *Store) RenameEpochDir(epochID string) error {
	src := s.epochDir(epochID)
	dst := src + ".bak"
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to clear old backup %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to back up epoch dir %s: %w", epochID, err)
	}
	return nil
}

// identified is satisfied by every persisted entity.
type identified interface{ GetID() string }

// appendJSONL appends records to a file, creating directories as needed.
func appendJSONL[T any](path string, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode record for %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// readJSONL reads all records from a file, deduplicating by id with
// last-occurrence-wins. A missing file yields an empty slice. Lines that
// fail to deserialize (e.g. a torn tail write) are discarded with a debug
// log rather than failing the read.
func readJSONL[T identified](path string) ([]T, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	index := make(map[string]int)
	var out []T

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			slog.Debug("Discarding undeserialisable line", "path", path, "line", lineNo, "error", err)
			continue
		}
		id := rec.GetID()
		if prev, ok := index[id]; ok {
			out[prev] = rec // last occurrence wins, original position kept
			continue
		}
		index[id] = len(out)
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return out, nil
}

// rewriteJSONL atomically replaces a file's contents: write to a tmp file
// in the same directory, then rename over the target.
func rewriteJSONL[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rewrite-*")
	if err != nil {
		return fmt.Errorf("failed to create tmp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("failed to encode record for %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close tmp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename tmp file into %s: %w", path, err)
	}
	return nil
}
