package analytics

import (
	"sort"

	"github.com/metaforge/metaforge/pkg/models"
)

// Archetype is one cluster of tactically similar lists within a faction.
type Archetype struct {
	Faction       string   `json:"faction"`
	Detachment    string   `json:"detachment"`
	Size          int      `json:"size"`
	DefiningUnits []string `json:"defining_units"`
	ListIDs       []string `json:"list_ids"`
	AvgPoints     float64  `json:"avg_points"`
}

// definingUnitMinShare and definingUnitMaxGlobal bound what counts as a
// cluster's defining unit: common inside the cluster, rare in the faction
// at large.
const (
	definingUnitMinShare  = 0.6
	definingUnitMaxGlobal = 0.3
	clusterSeedSimilarity = 0.5
)

// Archetypes clusters the given faction's lists by detachment and then by
// greedy unit-set similarity. Clusters below two lists are discarded.
func (e *Engine) Archetypes(faction string) ([]Archetype, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	canonical, _, _ := models.ResolveFaction(faction, "")
	var factionLists []models.ArmyList
	for _, l := range ds.lists {
		lf, _, _ := models.ResolveFaction(l.Faction, l.Subfaction)
		if lf == canonical {
			factionLists = append(factionLists, l)
		}
	}
	if len(factionLists) == 0 {
		return []Archetype{}, nil
	}

	// Unit frequency across the whole faction, for the rarity test.
	globalFreq := make(map[string]int)
	for _, l := range factionLists {
		for unit := range unitSet(l) {
			globalFreq[unit]++
		}
	}

	byDetachment := make(map[string][]models.ArmyList)
	for _, l := range factionLists {
		byDetachment[l.Detachment] = append(byDetachment[l.Detachment], l)
	}

	var out []Archetype
	for detachment, lists := range byDetachment {
		for _, cluster := range greedyClusters(lists) {
			arch := Archetype{
				Faction:       canonical,
				Detachment:    detachment,
				Size:          len(cluster),
				DefiningUnits: definingUnits(cluster, globalFreq, len(factionLists)),
			}
			points := 0
			for _, l := range cluster {
				arch.ListIDs = append(arch.ListIDs, l.ID)
				points += l.TotalPoints
			}
			arch.AvgPoints = round1(float64(points) / float64(len(cluster)))
			out = append(out, arch)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Detachment < out[j].Detachment
	})
	return out, nil
}

// greedyClusters runs greedy agglomerative clustering: each unassigned
// list seeds a cluster and absorbs every later unassigned list whose
// unit set is Jaccard-similar to the seed. Singletons are dropped.
func greedyClusters(lists []models.ArmyList) [][]models.ArmyList {
	assigned := make([]bool, len(lists))
	var clusters [][]models.ArmyList
	for i := range lists {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cluster := []models.ArmyList{lists[i]}
		seed := unitSet(lists[i])
		for j := i + 1; j < len(lists); j++ {
			if assigned[j] {
				continue
			}
			if Jaccard(seed, unitSet(lists[j])) >= clusterSeedSimilarity {
				assigned[j] = true
				cluster = append(cluster, lists[j])
			}
		}
		if len(cluster) >= 2 {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

// definingUnits picks units present in most of the cluster but rare in the
// faction overall.
func definingUnits(cluster []models.ArmyList, globalFreq map[string]int, factionTotal int) []string {
	freq := make(map[string]int)
	for _, l := range cluster {
		for unit := range unitSet(l) {
			freq[unit]++
		}
	}
	var out []string
	for unit, count := range freq {
		inCluster := float64(count) / float64(len(cluster))
		inFaction := float64(globalFreq[unit]) / float64(factionTotal)
		if inCluster >= definingUnitMinShare && inFaction < definingUnitMaxGlobal {
			out = append(out, unit)
		}
	}
	sort.Strings(out)
	return out
}

// unitSet is a list's set of unit names.
func unitSet(l models.ArmyList) map[string]struct{} {
	set := make(map[string]struct{}, len(l.Units))
	for _, u := range l.Units {
		set[u.Name] = struct{}{}
	}
	return set
}

// Jaccard is the similarity of two sets: |A∩B| / |A∪B|. Two empty sets are
// identical, so J(∅, ∅) = 1.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}
