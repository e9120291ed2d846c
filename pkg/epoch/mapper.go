// Package epoch derives the meta-epoch timeline from observed significant
// events and assigns dates to epochs. A Mapper is immutable once built;
// the orchestrator rebuilds it after every successful sync.
package epoch

import (
	"fmt"
	"sort"

	"github.com/metaforge/metaforge/pkg/models"
)

// Mapper holds the ordered epoch timeline.
type Mapper struct {
	epochs []models.MetaEpoch // sorted by start date ascending
}

// Build constructs a Mapper from an unordered collection of significant
// events. Epoch i starts on events[i].Date and ends the day before
// events[i+1].Date; the last epoch is open-ended and marked current.
func Build(events []models.SignificantEvent) (*Mapper, error) {
	sorted := make([]models.SignificantEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return models.DateBefore(sorted[i].Date, sorted[j].Date)
	})

	epochs := make([]models.MetaEpoch, 0, len(sorted))
	for i, ev := range sorted {
		if _, err := models.ParseDate(ev.Date); err != nil {
			return nil, fmt.Errorf("significant event %s: %w", ev.ID, err)
		}
		e := models.MetaEpoch{
			Name:         ev.Title,
			StartDate:    ev.Date,
			StartEventID: ev.ID,
		}
		e.ID = e.NewID()
		if i+1 < len(sorted) {
			end, err := models.PrevDay(sorted[i+1].Date)
			if err != nil {
				return nil, fmt.Errorf("significant event %s: %w", sorted[i+1].ID, err)
			}
			e.EndDate = end
			e.EndEventID = sorted[i+1].ID
		} else {
			e.IsCurrent = true
		}
		epochs = append(epochs, e)
	}

	return &Mapper{epochs: epochs}, nil
}

// Timeline returns the epochs sorted by start date ascending.
func (m *Mapper) Timeline() []models.MetaEpoch {
	out := make([]models.MetaEpoch, len(m.epochs))
	copy(out, m.epochs)
	return out
}

// Current returns the open-ended epoch, or false when no epochs exist.
func (m *Mapper) Current() (models.MetaEpoch, bool) {
	if len(m.epochs) == 0 {
		return models.MetaEpoch{}, false
	}
	return m.epochs[len(m.epochs)-1], true
}

// EpochForDate returns the id of the latest epoch whose start date is on
// or before the given date. Dates before the earliest epoch fall into the
// reserved pre-tracking epoch.
func (m *Mapper) EpochForDate(date string) string {
	// Binary search for the first epoch starting after date.
	i := sort.Search(len(m.epochs), func(i int) bool {
		return models.DateBefore(date, m.epochs[i].StartDate)
	})
	if i == 0 {
		return models.PreTrackingEpochID
	}
	return m.epochs[i-1].ID
}

// ByID returns the epoch with the given id.
func (m *Mapper) ByID(id string) (models.MetaEpoch, bool) {
	for _, e := range m.epochs {
		if e.ID == id {
			return e, true
		}
	}
	return models.MetaEpoch{}, false
}

// Len returns the number of epochs in the timeline.
func (m *Mapper) Len() int { return len(m.epochs) }
