package syncer

import (
	"fmt"
	"log/slog"

	"github.com/metaforge/metaforge/pkg/epoch"
	"github.com/metaforge/metaforge/pkg/models"
	"github.com/metaforge/metaforge/pkg/storage"
)

// RepartitionOptions tunes one repartition pass.
type RepartitionOptions struct {
	// DryRun computes the summary without touching disk.
	DryRun bool
	// KeepOriginals leaves the source epoch directory in place instead of
	// renaming it to .bak. Read-time dedup absorbs the duplicates.
	KeepOriginals bool
}

// RepartitionSummary reports what one pass did (or would do, in dry-run).
type RepartitionSummary struct {
	SourceEpoch     string         `json:"source_epoch"`
	EventsMoved     int            `json:"events_moved"`
	PlacementsMoved int            `json:"placements_moved"`
	ListsMoved      int            `json:"lists_moved"`
	PairingsMoved   int            `json:"pairings_moved"`
	Destinations    map[string]int `json:"destinations"`
	DryRun          bool           `json:"dry_run,omitempty"`
}

// Repartitioner re-files one epoch directory's entities against a (usually
// newer) epoch mapper. Placements and pairings follow their event's new
// epoch; lists use their own stored event date, falling back to source-URL
// resolution through the events read from the source epoch.
type Repartitioner struct {
	store *storage.Store
	log   *slog.Logger
}

// NewRepartitioner builds a repartitioner over the store.
func NewRepartitioner(store *storage.Store) *Repartitioner {
	return &Repartitioner{store: store, log: slog.With("component", "repartitioner")}
}

// Run re-files every entity of sourceEpoch. After success the source
// directory is renamed to <name>.bak unless KeepOriginals is set; entities
// are never deleted.
func (r *Repartitioner) Run(mapper *epoch.Mapper, sourceEpoch string, opts RepartitionOptions) (*RepartitionSummary, error) {
	events, err := r.store.ReadEvents(sourceEpoch)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	placements, err := r.store.ReadPlacements(sourceEpoch)
	if err != nil {
		return nil, fmt.Errorf("reading placements: %w", err)
	}
	lists, err := r.store.ReadLists(sourceEpoch)
	if err != nil {
		return nil, fmt.Errorf("reading lists: %w", err)
	}
	pairings, err := r.store.ReadPairings(sourceEpoch)
	if err != nil {
		return nil, fmt.Errorf("reading pairings: %w", err)
	}

	summary := &RepartitionSummary{
		SourceEpoch:  sourceEpoch,
		Destinations: make(map[string]int),
		DryRun:       opts.DryRun,
	}

	eventEpoch := make(map[string]string, len(events))
	eventByURL := make(map[string]string)
	eventsByEpoch := make(map[string][]models.Event)
	for _, ev := range events {
		dest := mapper.EpochForDate(ev.Date)
		eventEpoch[ev.ID] = dest
		if ev.SourceURL != "" {
			eventByURL[ev.SourceURL] = ev.ID
		}
		if dest != sourceEpoch {
			summary.EventsMoved++
		}
		ev.EpochID = dest
		eventsByEpoch[dest] = append(eventsByEpoch[dest], ev)
		summary.Destinations[dest]++
	}

	placementsByEpoch := make(map[string][]models.Placement)
	for _, p := range placements {
		dest, ok := eventEpoch[p.EventID]
		if !ok {
			dest = sourceEpoch
		}
		if dest != sourceEpoch {
			summary.PlacementsMoved++
		}
		p.EpochID = dest
		placementsByEpoch[dest] = append(placementsByEpoch[dest], p)
		summary.Destinations[dest]++
	}

	listsByEpoch := make(map[string][]models.ArmyList)
	for _, l := range lists {
		dest := r.listDestination(mapper, l, eventEpoch, eventByURL, sourceEpoch)
		if dest != sourceEpoch {
			summary.ListsMoved++
		}
		l.EpochID = dest
		listsByEpoch[dest] = append(listsByEpoch[dest], l)
		summary.Destinations[dest]++
	}

	pairingsByEpoch := make(map[string][]models.Pairing)
	for _, pr := range pairings {
		dest, ok := eventEpoch[pr.EventID]
		if !ok {
			dest = sourceEpoch
		}
		if dest != sourceEpoch {
			summary.PairingsMoved++
		}
		pr.EpochID = dest
		pairingsByEpoch[dest] = append(pairingsByEpoch[dest], pr)
		summary.Destinations[dest]++
	}

	if opts.DryRun {
		return summary, nil
	}

	if !opts.KeepOriginals {
		if err := r.store.RenameEpochDir(sourceEpoch); err != nil {
			return nil, fmt.Errorf("renaming source epoch: %w", err)
		}
	}

	for dest, evs := range eventsByEpoch {
		if err := r.store.AppendEvents(dest, evs...); err != nil {
			return nil, err
		}
	}
	for dest, ps := range placementsByEpoch {
		if err := r.store.AppendPlacements(dest, ps...); err != nil {
			return nil, err
		}
	}
	for dest, ls := range listsByEpoch {
		if err := r.store.AppendLists(dest, ls...); err != nil {
			return nil, err
		}
	}
	for dest, prs := range pairingsByEpoch {
		if err := r.store.AppendPairings(dest, prs...); err != nil {
			return nil, err
		}
	}

	r.log.Info("Repartition complete", "source", sourceEpoch,
		"events_moved", summary.EventsMoved, "placements_moved", summary.PlacementsMoved,
		"lists_moved", summary.ListsMoved, "pairings_moved", summary.PairingsMoved)
	return summary, nil
}

// listDestination resolves an army list's new epoch: its own stored event
// date first, then the source URL through the event index, else it stays.
func (r *Repartitioner) listDestination(mapper *epoch.Mapper, l models.ArmyList, eventEpoch, eventByURL map[string]string, sourceEpoch string) string {
	if l.EventDate != "" {
		return mapper.EpochForDate(l.EventDate)
	}
	if l.SourceURL != "" {
		if evID, ok := eventByURL[l.SourceURL]; ok {
			if dest, ok := eventEpoch[evID]; ok {
				return dest
			}
		}
	}
	if l.EventID != "" {
		if dest, ok := eventEpoch[l.EventID]; ok {
			return dest
		}
	}
	return sourceEpoch
}
