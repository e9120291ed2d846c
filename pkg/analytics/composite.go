package analytics

import (
	"math"
	"sort"
)

// CompositeScore is one faction's derived meta metrics.
type CompositeScore struct {
	Faction          string  `json:"faction"`
	AdjustedWinRate  float64 `json:"adjusted_win_rate"`
	MetaShare        float64 `json:"meta_share"`
	Top4Rate         float64 `json:"top4_rate"`
	FirstPlaceRate   float64 `json:"first_place_rate"`
	MetaThreat       float64 `json:"meta_threat"`
	ExpectedPodiums  float64 `json:"expected_podiums"`
	BalanceDeviation float64 `json:"balance_deviation"`
	PowerIndex       float64 `json:"power_index"`
}

// CompositeScores derives meta_threat, expected_podiums, balance_deviation,
// and power_index per faction.
func (e *Engine) CompositeScores() ([]CompositeScore, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	rates := e.winRatesFrom(ds)
	top4 := make(map[string]int)
	first := make(map[string]int)
	for _, p := range ds.placements {
		if p.Faction == "" {
			continue
		}
		if p.Rank <= 4 {
			top4[p.Faction]++
		}
		if p.Rank == 1 {
			first[p.Faction]++
		}
	}

	out := make([]CompositeScore, 0, len(rates))
	for _, wr := range rates {
		cs := CompositeScore{
			Faction:         wr.Faction,
			AdjustedWinRate: wr.AdjustedRate,
			MetaShare:       wr.MetaShare,
		}
		if wr.Placements > 0 {
			cs.Top4Rate = round1(float64(top4[wr.Faction]) / float64(wr.Placements) * 100)
			cs.FirstPlaceRate = round1(float64(first[wr.Faction]) / float64(wr.Placements) * 100)
		}
		share := math.Sqrt(cs.MetaShare)
		cs.MetaThreat = round1(cs.AdjustedWinRate * share)
		cs.ExpectedPodiums = round1(cs.MetaShare * cs.Top4Rate / 100)
		cs.BalanceDeviation = round1((cs.AdjustedWinRate - 50) * share)
		out = append(out, cs)
	}

	assignPowerIndex(out)
	sort.Slice(out, func(i, j int) bool { return out[i].PowerIndex > out[j].PowerIndex })
	return out, nil
}

// assignPowerIndex sets each faction's power index to the mean of its
// percentile ranks across the four base metrics.
func assignPowerIndex(scores []CompositeScore) {
	n := len(scores)
	if n == 0 {
		return
	}
	metrics := []func(CompositeScore) float64{
		func(s CompositeScore) float64 { return s.AdjustedWinRate },
		func(s CompositeScore) float64 { return s.MetaShare },
		func(s CompositeScore) float64 { return s.Top4Rate },
		func(s CompositeScore) float64 { return s.FirstPlaceRate },
	}

	sums := make([]float64, n)
	for _, metric := range metrics {
		values := make([]float64, n)
		for i, s := range scores {
			values[i] = metric(s)
		}
		for i, pct := range percentileRanks(values) {
			sums[i] += pct
		}
	}
	for i := range scores {
		scores[i].PowerIndex = round1(sums[i] / float64(len(metrics)))
	}
}

// percentileRanks maps each value to the share of other values at or below
// it, in percent. A single value ranks at 100.
func percentileRanks(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 1 {
		out[0] = 100
		return out
	}
	for i, v := range values {
		below := 0
		for j, other := range values {
			if j != i && other <= v {
				below++
			}
		}
		out[i] = float64(below) / float64(n-1) * 100
	}
	return out
}
