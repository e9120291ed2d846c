package syncer

import (
	"context"

	"github.com/metaforge/metaforge/pkg/models"
)

// PreviewSummary is the planning view of a refresh window: what discovery
// would find and how much of it is new.
type PreviewSummary struct {
	Window        Window `json:"window"`
	EventsFound   int    `json:"events_found"`
	Syncable      int    `json:"syncable"`
	Skipped       int    `json:"skipped"`
	AlreadyStored int    `json:"already_stored"`
	New           int    `json:"new"`
}

// Preview discovers the window's events and reports counts without writing
// anything.
func (o *Orchestrator) Preview(ctx context.Context, window Window) (*PreviewSummary, error) {
	discovered, err := o.client.DiscoverEvents(ctx, window.From, window.To, 100)
	if err != nil {
		return nil, err
	}

	stored, err := o.store.ReadAllEvents()
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(stored))
	for _, ev := range stored {
		known[ev.ID] = struct{}{}
	}

	summary := &PreviewSummary{Window: window, EventsFound: len(discovered)}
	today := models.FormatDate(o.now())
	for _, pe := range discovered {
		if skip, _ := skipReason(pe, today); skip {
			summary.Skipped++
			continue
		}
		summary.Syncable++

		candidate := models.Event{Name: pe.Name, Date: pe.StartDate, Location: pe.Location}
		if _, ok := known[candidate.NewID()]; ok {
			summary.AlreadyStored++
		} else {
			summary.New++
		}
	}
	return summary, nil
}
