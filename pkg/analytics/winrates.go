package analytics

import "sort"

// FactionWinRate is one faction's aggregate record.
type FactionWinRate struct {
	Faction      string  `json:"faction"`
	Allegiance   string  `json:"allegiance"`
	Placements   int     `json:"placements"`
	Games        int     `json:"games"`
	Wins         float64 `json:"wins"` // W + 0.5·D
	RawRate      float64 `json:"raw_win_rate"`
	AdjustedRate float64 `json:"adjusted_win_rate"`
	MetaShare    float64 `json:"meta_share"`
}

// WinRates computes per-faction win rates with the survivorship filter and
// Bayesian shrinkage toward 50%. Meta share counts every placement; game
// records only come from events with full standings.
func (e *Engine) WinRates() ([]FactionWinRate, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return e.winRatesFrom(ds), nil
}

type record struct {
	allegiance string
	placements int
	games      int
	wins       float64
}

func (e *Engine) winRatesFrom(ds *dataset) []FactionWinRate {
	byFaction := make(map[string]*record)
	total := 0
	for _, p := range ds.placements {
		if p.Faction == "" {
			continue
		}
		r := byFaction[p.Faction]
		if r == nil {
			r = &record{allegiance: p.Allegiance}
			byFaction[p.Faction] = r
		}
		r.placements++
		total++

		if ds.topOnly[p.EventID] {
			continue
		}
		r.games += p.Wins + p.Losses + p.Draws
		r.wins += float64(p.Wins) + 0.5*float64(p.Draws)
	}

	k := float64(e.cfg.PriorWeight)
	out := make([]FactionWinRate, 0, len(byFaction))
	for faction, r := range byFaction {
		wr := FactionWinRate{
			Faction:    faction,
			Allegiance: r.allegiance,
			Placements: r.placements,
			Games:      r.games,
			Wins:       r.wins,
		}
		if total > 0 {
			wr.MetaShare = round1(float64(r.placements) / float64(total) * 100)
		}
		if r.games > 0 {
			wr.RawRate = round1(r.wins / float64(r.games) * 100)
			wr.AdjustedRate = round1((r.wins + k*0.5) / (float64(r.games) + k) * 100)
		} else {
			wr.AdjustedRate = 50.0
		}
		out = append(out, wr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AdjustedRate != out[j].AdjustedRate {
			return out[i].AdjustedRate > out[j].AdjustedRate
		}
		return out[i].Faction < out[j].Faction
	})
	return out
}
