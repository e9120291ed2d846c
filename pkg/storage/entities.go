package storage

import (
	"fmt"
	"path/filepath"

	"github.com/metaforge/metaforge/pkg/models"
)

// AppendEvents appends events to an epoch's events file.
func (s *Store) AppendEvents(epochID string, events ...models.Event) error {
	return appendJSONL(filepath.Join(s.epochDir(epochID), fileEvents), events)
}

// AppendPlacements appends placements to an epoch's placements file.
func (s *Store) AppendPlacements(epochID string, placements ...models.Placement) error {
	return appendJSONL(filepath.Join(s.epochDir(epochID), filePlacements), placements)
}

// AppendLists appends army lists to an epoch's army_lists file.
func (s *Store) AppendLists(epochID string, lists ...models.ArmyList) error {
	return appendJSONL(filepath.Join(s.epochDir(epochID), fileLists), lists)
}

// AppendPairings appends pairings to an epoch's pairings file.
func (s *Store) AppendPairings(epochID string, pairings ...models.Pairing) error {
	return appendJSONL(filepath.Join(s.epochDir(epochID), filePairings), pairings)
}

// AppendSignificantEvents appends to the epoch-independent significant
// events log.
func (s *Store) AppendSignificantEvents(events ...models.SignificantEvent) error {
	return appendJSONL(filepath.Join(s.normalizedDir(), fileSignificant), events)
}

// ReadEvents returns the deduplicated events of one epoch.
func (s *Store) ReadEvents(epochID string) ([]models.Event, error) {
	return readJSONL[models.Event](filepath.Join(s.epochDir(epochID), fileEvents))
}

// ReadPlacements returns the deduplicated placements of one epoch.
func (s *Store) ReadPlacements(epochID string) ([]models.Placement, error) {
	return readJSONL[models.Placement](filepath.Join(s.epochDir(epochID), filePlacements))
}

// ReadLists returns the deduplicated army lists of one epoch.
func (s *Store) ReadLists(epochID string) ([]models.ArmyList, error) {
	return readJSONL[models.ArmyList](filepath.Join(s.epochDir(epochID), fileLists))
}

// ReadPairings returns the deduplicated pairings of one epoch.
func (s *Store) ReadPairings(epochID string) ([]models.Pairing, error) {
	return readJSONL[models.Pairing](filepath.Join(s.epochDir(epochID), filePairings))
}

// ReadSignificantEvents returns the deduplicated significant events log.
func (s *Store) ReadSignificantEvents() ([]models.SignificantEvent, error) {
	return readJSONL[models.SignificantEvent](filepath.Join(s.normalizedDir(), fileSignificant))
}

// ReadAllEvents returns deduplicated events across every epoch directory.
func (s *Store) ReadAllEvents() ([]models.Event, error) {
	return readAcrossEpochs(s, s.ReadEvents)
}

// ReadAllPlacements returns deduplicated placements across every epoch.
func (s *Store) ReadAllPlacements() ([]models.Placement, error) {
	return readAcrossEpochs(s, s.ReadPlacements)
}

// ReadAllLists returns deduplicated army lists across every epoch.
func (s *Store) ReadAllLists() ([]models.ArmyList, error) {
	return readAcrossEpochs(s, s.ReadLists)
}

// ReadAllPairings returns deduplicated pairings across every epoch.
func (s *Store) ReadAllPairings() ([]models.Pairing, error) {
	return readAcrossEpochs(s, s.ReadPairings)
}

// RewriteEpochEvents atomically replaces an epoch's events file.
func (s *Store) RewriteEpochEvents(epochID string, events []models.Event) error {
	return rewriteJSONL(filepath.Join(s.epochDir(epochID), fileEvents), events)
}

// RewriteEpochPlacements atomically replaces an epoch's placements file.
func (s *Store) RewriteEpochPlacements(epochID string, placements []models.Placement) error {
	return rewriteJSONL(filepath.Join(s.epochDir(epochID), filePlacements), placements)
}

// RewriteEpochLists atomically replaces an epoch's army_lists file.
func (s *Store) RewriteEpochLists(epochID string, lists []models.ArmyList) error {
	return rewriteJSONL(filepath.Join(s.epochDir(epochID), fileLists), lists)
}

// readAcrossEpochs merges one entity type from every epoch directory,
// deduplicating across directories with last-wins in directory order.
func readAcrossEpochs[T identified](s *Store, read func(string) ([]T, error)) ([]T, error) {
	dirs, err := s.ListEpochDirs()
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var out []T
	for _, dir := range dirs {
		recs, err := read(dir)
		if err != nil {
			return nil, fmt.Errorf("reading epoch %s: %w", dir, err)
		}
		for _, rec := range recs {
			id := rec.GetID()
			if prev, ok := index[id]; ok {
				out[prev] = rec
				continue
			}
			index[id] = len(out)
			out = append(out, rec)
		}
	}
	return out, nil
}
