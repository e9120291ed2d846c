package analytics

import (
	"sort"

	"github.com/metaforge/metaforge/pkg/models"
)

// TrendPoint is one faction's standing within one epoch.
type TrendPoint struct {
	EpochID   string  `json:"epoch_id"`
	EpochName string  `json:"epoch_name,omitempty"`
	StartDate string  `json:"start_date,omitempty"`
	MetaShare float64 `json:"meta_share"`
	WinRate   float64 `json:"win_rate"`
	Count     int     `json:"count"`
}

// FactionTrend is one faction's time series across the epoch timeline.
type FactionTrend struct {
	Faction string       `json:"faction"`
	Points  []TrendPoint `json:"points"`
}

// trendTopFactions is how many factions Trends reports when the caller
// names none.
const trendTopFactions = 10

// Trends builds per-epoch meta share and win rate series. When factions is
// empty the top factions by global placement count are used.
func (e *Engine) Trends(factions []string) ([]FactionTrend, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	if len(factions) == 0 {
		factions = topFactionsByCount(ds, trendTopFactions)
	} else {
		for i, f := range factions {
			factions[i], _, _ = models.ResolveFaction(f, "")
		}
	}

	// Per-epoch totals and per-epoch per-faction tallies.
	type tally struct {
		placements int
		games      int
		wins       float64
	}
	epochTotals := make(map[string]int)
	perFaction := make(map[string]map[string]*tally) // faction -> epoch -> tally
	for _, p := range ds.placements {
		if p.Faction == "" || p.EpochID == "" {
			continue
		}
		epochTotals[p.EpochID]++
		byEpoch := perFaction[p.Faction]
		if byEpoch == nil {
			byEpoch = make(map[string]*tally)
			perFaction[p.Faction] = byEpoch
		}
		t := byEpoch[p.EpochID]
		if t == nil {
			t = &tally{}
			byEpoch[p.EpochID] = t
		}
		t.placements++
		if !ds.topOnly[p.EventID] {
			t.games += p.Wins + p.Losses + p.Draws
			t.wins += float64(p.Wins) + 0.5*float64(p.Draws)
		}
	}

	timeline := e.epochs.Get().Timeline()
	ordered := make([]models.MetaEpoch, 0, len(timeline)+1)
	if epochTotals[models.PreTrackingEpochID] > 0 {
		ordered = append(ordered, models.MetaEpoch{
			ID: models.PreTrackingEpochID, Name: "Pre-tracking",
		})
	}
	ordered = append(ordered, timeline...)

	out := make([]FactionTrend, 0, len(factions))
	for _, faction := range factions {
		trend := FactionTrend{Faction: faction, Points: []TrendPoint{}}
		byEpoch := perFaction[faction]
		for _, ep := range ordered {
			total := epochTotals[ep.ID]
			if total == 0 {
				continue
			}
			point := TrendPoint{EpochID: ep.ID, EpochName: ep.Name, StartDate: ep.StartDate}
			if t := byEpoch[ep.ID]; t != nil {
				point.Count = t.placements
				point.MetaShare = round1(float64(t.placements) / float64(total) * 100)
				if t.games > 0 {
					point.WinRate = round1(t.wins / float64(t.games) * 100)
				}
			}
			trend.Points = append(trend.Points, point)
		}
		out = append(out, trend)
	}
	return out, nil
}

// topFactionsByCount returns the n most-played factions.
func topFactionsByCount(ds *dataset, n int) []string {
	counts := make(map[string]int)
	for _, p := range ds.placements {
		if p.Faction != "" {
			counts[p.Faction]++
		}
	}
	factions := make([]string, 0, len(counts))
	for f := range counts {
		factions = append(factions, f)
	}
	sort.Slice(factions, func(i, j int) bool {
		if counts[factions[i]] != counts[factions[j]] {
			return counts[factions[i]] > counts[factions[j]]
		}
		return factions[i] < factions[j]
	})
	if len(factions) > n {
		factions = factions[:n]
	}
	return factions
}
