package analytics

import (
	"sort"
	"strings"

	"github.com/metaforge/metaforge/pkg/models"
)

// NameCount is a generic name-with-count pair used by popularity views.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Overview is the hero-numbers summary.
type Overview struct {
	TotalEvents     int    `json:"total_events"`
	CompletedEvents int    `json:"completed_events"`
	TotalPlacements int    `json:"total_placements"`
	TotalLists      int    `json:"total_lists"`
	TotalPairings   int    `json:"total_pairings"`
	FactionCount    int    `json:"faction_count"`
	EpochCount      int    `json:"epoch_count"`
	LastEventDate   string `json:"last_event_date,omitempty"`
	PendingReviews  int    `json:"pending_reviews"`
}

// GetOverview computes the totals across the whole store.
func (e *Engine) GetOverview() (*Overview, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	o := &Overview{
		TotalEvents:     len(ds.events),
		TotalPlacements: len(ds.placements),
		TotalLists:      len(ds.lists),
		TotalPairings:   len(ds.pairings),
		EpochCount:      e.epochs.Get().Len(),
	}
	factions := make(map[string]struct{})
	for _, p := range ds.placements {
		if p.Faction != "" {
			factions[p.Faction] = struct{}{}
		}
	}
	o.FactionCount = len(factions)
	for _, ev := range ds.events {
		if ev.Status == models.EventStatusCompleted {
			o.CompletedEvents++
			if o.LastEventDate == "" || models.DateBefore(o.LastEventDate, ev.Date) {
				o.LastEventDate = ev.Date
			}
		}
	}

	reviews, err := e.store.ReadReviews()
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		if !r.Resolved {
			o.PendingReviews++
		}
	}
	return o, nil
}

// MetaFaction is one faction's share plus its most-played detachments and
// units.
type MetaFaction struct {
	Faction        string      `json:"faction"`
	Allegiance     string      `json:"allegiance"`
	Placements     int         `json:"placements"`
	MetaShare      float64     `json:"meta_share"`
	TopDetachments []NameCount `json:"top_detachments"`
	TopUnits       []NameCount `json:"top_units"`
}

// metaTopEntries bounds the per-faction detachment and unit lists.
const metaTopEntries = 5

// MetaFactions summarizes every faction's meta presence.
func (e *Engine) MetaFactions() ([]MetaFaction, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	type agg struct {
		allegiance  string
		placements  int
		detachments map[string]int
		units       map[string]int
	}
	byFaction := make(map[string]*agg)
	total := 0
	for _, p := range ds.placements {
		if p.Faction == "" {
			continue
		}
		a := byFaction[p.Faction]
		if a == nil {
			a = &agg{
				allegiance:  p.Allegiance,
				detachments: make(map[string]int),
				units:       make(map[string]int),
			}
			byFaction[p.Faction] = a
		}
		a.placements++
		total++
		if p.List != nil {
			if p.List.Detachment != "" {
				a.detachments[p.List.Detachment]++
			}
			for unit := range unitSet(*p.List) {
				a.units[unit]++
			}
		} else if p.Detachment != "" {
			a.detachments[p.Detachment]++
		}
	}

	out := make([]MetaFaction, 0, len(byFaction))
	for faction, a := range byFaction {
		mf := MetaFaction{
			Faction:        faction,
			Allegiance:     a.allegiance,
			Placements:     a.placements,
			TopDetachments: topCounts(a.detachments, metaTopEntries),
			TopUnits:       topCounts(a.units, metaTopEntries),
		}
		if total > 0 {
			mf.MetaShare = round1(float64(a.placements) / float64(total) * 100)
		}
		out = append(out, mf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Placements != out[j].Placements {
			return out[i].Placements > out[j].Placements
		}
		return out[i].Faction < out[j].Faction
	})
	return out, nil
}

// Winner is one first-place finish.
type Winner struct {
	EventID    string `json:"event_id"`
	EventName  string `json:"event_name"`
	Date       string `json:"date"`
	PlayerName string `json:"player_name"`
	ListID     string `json:"list_id,omitempty"`
	Detachment string `json:"detachment,omitempty"`
}

// FactionDetail is one faction's drill-down view.
type FactionDetail struct {
	Faction        string      `json:"faction"`
	Allegiance     string      `json:"allegiance"`
	Placements     int         `json:"placements"`
	Winners        []Winner    `json:"winners"`
	UnitPopularity []NameCount `json:"unit_popularity"`
	Detachments    []NameCount `json:"detachments"`
}

// GetFactionDetail returns the drill-down for one faction, or nil when the
// faction has no placements.
func (e *Engine) GetFactionDetail(name string) (*FactionDetail, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	canonical, _, allegiance := models.ResolveFaction(name, "")
	detail := &FactionDetail{
		Faction:    canonical,
		Allegiance: allegiance,
		Winners:    []Winner{},
	}
	units := make(map[string]int)
	detachments := make(map[string]int)
	for _, p := range ds.placements {
		if p.Faction != canonical {
			continue
		}
		detail.Placements++
		if p.List != nil {
			for unit := range unitSet(*p.List) {
				units[unit]++
			}
			if p.List.Detachment != "" {
				detachments[p.List.Detachment]++
			}
		} else if p.Detachment != "" {
			detachments[p.Detachment]++
		}
		if p.Rank == 1 {
			w := Winner{
				EventID:    p.EventID,
				PlayerName: p.PlayerName,
				ListID:     p.ListID,
				Detachment: p.Detachment,
			}
			if ev, ok := ds.eventByID[p.EventID]; ok {
				w.EventName = ev.Name
				w.Date = ev.Date
			}
			detail.Winners = append(detail.Winners, w)
		}
	}
	if detail.Placements == 0 {
		return nil, nil
	}

	sort.Slice(detail.Winners, func(i, j int) bool {
		return models.DateBefore(detail.Winners[j].Date, detail.Winners[i].Date)
	})
	detail.UnitPopularity = topCounts(units, 20)
	detail.Detachments = topCounts(detachments, 0)
	return detail, nil
}

// RecentResult is the tail entry of a player's record.
type RecentResult struct {
	EventName string `json:"event_name"`
	Date      string `json:"date"`
	Rank      int    `json:"rank"`
	Faction   string `json:"faction,omitempty"`
}

// PlayerStat is one player's aggregate record.
type PlayerStat struct {
	PlayerName    string         `json:"player_name"`
	Events        int            `json:"events"`
	Wins          int            `json:"wins"`
	Losses        int            `json:"losses"`
	Draws         int            `json:"draws"`
	WinRate       float64        `json:"win_rate"`
	BestRank      int            `json:"best_rank"`
	Podiums       int            `json:"podiums"` // rank <= 4
	RecentResults []RecentResult `json:"recent_results"`
}

// playerRecentTail bounds the recent-results tail per player.
const playerRecentTail = 5

// TopPlayers aggregates per-player records, ordered by wins then win rate.
func (e *Engine) TopPlayers() ([]PlayerStat, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	byPlayer := make(map[string]*PlayerStat)
	results := make(map[string][]RecentResult)
	for _, p := range ds.placements {
		key := normName(p.PlayerName)
		if key == "" {
			continue
		}
		ps := byPlayer[key]
		if ps == nil {
			ps = &PlayerStat{PlayerName: p.PlayerName}
			byPlayer[key] = ps
		}
		ps.Events++
		ps.Wins += p.Wins
		ps.Losses += p.Losses
		ps.Draws += p.Draws
		if ps.BestRank == 0 || p.Rank < ps.BestRank {
			ps.BestRank = p.Rank
		}
		if p.Rank <= 4 {
			ps.Podiums++
		}

		rr := RecentResult{Rank: p.Rank, Faction: p.Faction}
		if ev, ok := ds.eventByID[p.EventID]; ok {
			rr.EventName = ev.Name
			rr.Date = ev.Date
		}
		results[key] = append(results[key], rr)
	}

	out := make([]PlayerStat, 0, len(byPlayer))
	for key, ps := range byPlayer {
		games := ps.Wins + ps.Losses + ps.Draws
		if games > 0 {
			ps.WinRate = round1((float64(ps.Wins) + 0.5*float64(ps.Draws)) / float64(games) * 100)
		}
		tail := results[key]
		sort.Slice(tail, func(i, j int) bool {
			return models.DateBefore(tail[j].Date, tail[i].Date)
		})
		if len(tail) > playerRecentTail {
			tail = tail[:playerRecentTail]
		}
		ps.RecentResults = tail
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].PlayerName < out[j].PlayerName
	})
	return out, nil
}

// UnitStat is one unit's popularity, globally and by faction.
type UnitStat struct {
	Name     string      `json:"name"`
	Count    int         `json:"count"`
	Share    float64     `json:"share"` // of all lists, percent
	Factions []NameCount `json:"factions,omitempty"`
}

// UnitPopularity counts units across all lists.
func (e *Engine) UnitPopularity() ([]UnitStat, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	if len(ds.lists) == 0 {
		return []UnitStat{}, nil
	}

	counts := make(map[string]int)
	perFaction := make(map[string]map[string]int)
	for _, l := range ds.lists {
		faction, _, _ := models.ResolveFaction(l.Faction, l.Subfaction)
		for unit := range unitSet(l) {
			counts[unit]++
			if faction != "" {
				if perFaction[unit] == nil {
					perFaction[unit] = make(map[string]int)
				}
				perFaction[unit][faction]++
			}
		}
	}

	out := make([]UnitStat, 0, len(counts))
	for unit, count := range counts {
		out = append(out, UnitStat{
			Name:     unit,
			Count:    count,
			Share:    round1(float64(count) / float64(len(ds.lists)) * 100),
			Factions: topCounts(perFaction[unit], 3),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DetachmentStat is one detachment's aggregate performance.
type DetachmentStat struct {
	Detachment string  `json:"detachment"`
	Faction    string  `json:"faction"`
	Lists      int     `json:"lists"`
	AvgPoints  float64 `json:"avg_points"`
	WinRate    float64 `json:"win_rate"`
	Top4Rate   float64 `json:"top4_rate"`
}

// DetachmentStats aggregates performance per (faction, detachment).
func (e *Engine) DetachmentStats() ([]DetachmentStat, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	type agg struct {
		faction string
		lists   int
		points  int
		games   int
		wins    float64
		ranked  int
		top4    int
	}
	byKey := make(map[string]*agg)
	for _, p := range ds.placements {
		if p.List == nil || p.List.Detachment == "" {
			continue
		}
		faction, _, _ := models.ResolveFaction(p.List.Faction, p.List.Subfaction)
		key := faction + "|" + p.List.Detachment
		a := byKey[key]
		if a == nil {
			a = &agg{faction: faction}
			byKey[key] = a
		}
		a.lists++
		a.points += p.List.TotalPoints
		a.ranked++
		if p.Rank <= 4 {
			a.top4++
		}
		if !ds.topOnly[p.EventID] {
			a.games += p.Wins + p.Losses + p.Draws
			a.wins += float64(p.Wins) + 0.5*float64(p.Draws)
		}
	}

	out := make([]DetachmentStat, 0, len(byKey))
	for key, a := range byKey {
		stat := DetachmentStat{
			Detachment: key[strings.Index(key, "|")+1:],
			Faction:    a.faction,
			Lists:      a.lists,
			AvgPoints:  round1(float64(a.points) / float64(a.lists)),
		}
		if a.games > 0 {
			stat.WinRate = round1(a.wins / float64(a.games) * 100)
		}
		if a.ranked > 0 {
			stat.Top4Rate = round1(float64(a.top4) / float64(a.ranked) * 100)
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lists != out[j].Lists {
			return out[i].Lists > out[j].Lists
		}
		return out[i].Detachment < out[j].Detachment
	})
	return out, nil
}

// UnitPerformance is one unit's top-4 overrepresentation.
type UnitPerformance struct {
	Name               string  `json:"name"`
	TotalLists         int     `json:"total_lists"`
	Top4Lists          int     `json:"top4_lists"`
	OverallShare       float64 `json:"overall_share"`
	Top4Share          float64 `json:"top4_share"`
	Overrepresentation float64 `json:"overrepresentation"`
}

// UnitPerformanceStats compares each unit's share of top-4 lists with its
// share of all lists.
func (e *Engine) UnitPerformanceStats() ([]UnitPerformance, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	totalLists := 0
	top4Lists := 0
	inAll := make(map[string]int)
	inTop4 := make(map[string]int)
	for _, p := range ds.placements {
		if p.List == nil {
			continue
		}
		totalLists++
		top := p.Rank <= 4
		if top {
			top4Lists++
		}
		for unit := range unitSet(*p.List) {
			inAll[unit]++
			if top {
				inTop4[unit]++
			}
		}
	}
	if totalLists == 0 {
		return []UnitPerformance{}, nil
	}

	out := make([]UnitPerformance, 0, len(inAll))
	for unit, count := range inAll {
		perf := UnitPerformance{
			Name:         unit,
			TotalLists:   count,
			Top4Lists:    inTop4[unit],
			OverallShare: round1(float64(count) / float64(totalLists) * 100),
		}
		if top4Lists > 0 {
			perf.Top4Share = round1(float64(inTop4[unit]) / float64(top4Lists) * 100)
		}
		if perf.OverallShare > 0 {
			perf.Overrepresentation = round2(perf.Top4Share / perf.OverallShare)
		}
		out = append(out, perf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Overrepresentation != out[j].Overrepresentation {
			return out[i].Overrepresentation > out[j].Overrepresentation
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// PointsEfficiency is a faction's win rate relative to its average list
// cost.
type PointsEfficiency struct {
	Faction       string  `json:"faction"`
	Lists         int     `json:"lists"`
	AvgPoints     float64 `json:"avg_points"`
	WinRate       float64 `json:"win_rate"`
	WinRatePer100 float64 `json:"win_rate_per_100_points"`
}

// PointsEfficiencyStats relates each faction's win rate to the points its
// lists actually spend.
func (e *Engine) PointsEfficiencyStats() ([]PointsEfficiency, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	rates := e.winRatesFrom(ds)
	rateByFaction := make(map[string]FactionWinRate, len(rates))
	for _, r := range rates {
		rateByFaction[r.Faction] = r
	}

	type agg struct {
		lists  int
		points int
	}
	byFaction := make(map[string]*agg)
	for _, l := range ds.lists {
		if l.TotalPoints == 0 {
			continue
		}
		faction, _, _ := models.ResolveFaction(l.Faction, l.Subfaction)
		if faction == "" {
			continue
		}
		a := byFaction[faction]
		if a == nil {
			a = &agg{}
			byFaction[faction] = a
		}
		a.lists++
		a.points += l.TotalPoints
	}

	out := make([]PointsEfficiency, 0, len(byFaction))
	for faction, a := range byFaction {
		pe := PointsEfficiency{
			Faction:   faction,
			Lists:     a.lists,
			AvgPoints: round1(float64(a.points) / float64(a.lists)),
			WinRate:   rateByFaction[faction].RawRate,
		}
		if pe.AvgPoints > 0 {
			pe.WinRatePer100 = round2(pe.WinRate / pe.AvgPoints * 100)
		}
		out = append(out, pe)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRatePer100 != out[j].WinRatePer100 {
			return out[i].WinRatePer100 > out[j].WinRatePer100
		}
		return out[i].Faction < out[j].Faction
	})
	return out, nil
}

// Matchup is one ordered faction pair's head-to-head record.
type Matchup struct {
	Faction  string  `json:"faction"`
	Opponent string  `json:"opponent"`
	Games    int     `json:"games"`
	Wins     float64 `json:"wins"` // W + 0.5·D for Faction
	WinRate  float64 `json:"win_rate"`
}

// Matchups builds the pairwise faction win-rate matrix from pairings.
// Mirror matches are excluded. Each unordered pair appears twice, once
// from each side's perspective.
func (e *Engine) Matchups() ([]Matchup, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	type agg struct {
		games int
		wins  float64
	}
	byPair := make(map[[2]string]*agg)
	add := func(faction, opponent string, result models.GameResult) {
		key := [2]string{faction, opponent}
		a := byPair[key]
		if a == nil {
			a = &agg{}
			byPair[key] = a
		}
		a.games++
		switch result {
		case models.ResultWin:
			a.wins++
		case models.ResultDraw:
			a.wins += 0.5
		}
	}

	for _, pr := range ds.pairings {
		f1, _, _ := models.ResolveFaction(pr.P1Faction, "")
		f2, _, _ := models.ResolveFaction(pr.P2Faction, "")
		if f1 == "" || f2 == "" || f1 == f2 {
			continue
		}
		add(f1, f2, pr.P1Result)
		add(f2, f1, pr.P2Result)
	}

	out := make([]Matchup, 0, len(byPair))
	for key, a := range byPair {
		out = append(out, Matchup{
			Faction:  key[0],
			Opponent: key[1],
			Games:    a.games,
			Wins:     a.wins,
			WinRate:  round1(a.wins / float64(a.games) * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Faction != out[j].Faction {
			return out[i].Faction < out[j].Faction
		}
		return out[i].Opponent < out[j].Opponent
	})
	return out, nil
}

// topCounts turns a frequency map into a sorted NameCount slice, keeping
// the n most frequent (all of them when n <= 0).
func topCounts(counts map[string]int, n int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
