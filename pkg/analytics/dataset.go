package analytics

import (
	"strings"

	"github.com/metaforge/metaforge/pkg/models"
	"github.com/metaforge/metaforge/pkg/storage"
)

// placementView is a placement with its faction normalized and its army
// list joined in (nil when no list could be matched).
type placementView struct {
	models.Placement
	List *models.ArmyList
}

// dataset is one consistent snapshot of the normalized store, loaded once
// and shared by every analytics computation until the cache expires.
type dataset struct {
	events     []models.Event
	eventByID  map[string]models.Event
	placements []placementView
	lists      []models.ArmyList
	pairings   []models.Pairing

	// topOnly marks events whose maximum rank is at or under the
	// survivorship threshold: coverage of only the winners, not full
	// standings. Their placements are excluded from win-rate aggregates.
	topOnly map[string]bool
}

// loadDataset reads the whole normalized store and performs faction
// normalization and the list-to-placement join.
func loadDataset(store *storage.Store, topOnlyMaxRank int) (*dataset, error) {
	events, err := store.ReadAllEvents()
	if err != nil {
		return nil, err
	}
	placements, err := store.ReadAllPlacements()
	if err != nil {
		return nil, err
	}
	lists, err := store.ReadAllLists()
	if err != nil {
		return nil, err
	}
	pairings, err := store.ReadAllPairings()
	if err != nil {
		return nil, err
	}

	ds := &dataset{
		events:    events,
		eventByID: make(map[string]models.Event, len(events)),
		lists:     lists,
		pairings:  pairings,
		topOnly:   make(map[string]bool),
	}
	for _, ev := range events {
		ds.eventByID[ev.ID] = ev
	}

	maxRank := make(map[string]int)
	for _, p := range placements {
		if p.Rank > maxRank[p.EventID] {
			maxRank[p.EventID] = p.Rank
		}
	}
	for eventID, rank := range maxRank {
		if rank <= topOnlyMaxRank {
			ds.topOnly[eventID] = true
		}
	}

	joined := joinLists(placements, lists, ds.eventByID)
	ds.placements = make([]placementView, len(placements))
	for i, p := range placements {
		p.Faction, p.Subfaction, p.Allegiance = models.ResolveFaction(p.Faction, p.Subfaction)
		ds.placements[i] = placementView{Placement: p, List: joined[i]}
	}
	return ds, nil
}

// joinLists matches each placement to its army list. Primary: list id.
// Fallback: same event plus normalized player name. Second fallback: lists
// tied to the event's source URL scored on faction and detachment match.
func joinLists(placements []models.Placement, lists []models.ArmyList, eventByID map[string]models.Event) []*models.ArmyList {
	byID := make(map[string]*models.ArmyList, len(lists))
	byEventPlayer := make(map[string]*models.ArmyList)
	byURL := make(map[string][]*models.ArmyList)
	for i := range lists {
		l := &lists[i]
		byID[l.ID] = l
		if l.EventID != "" && l.PlayerName != "" {
			byEventPlayer[l.EventID+"|"+normName(l.PlayerName)] = l
		}
		if l.SourceURL != "" {
			byURL[l.SourceURL] = append(byURL[l.SourceURL], l)
		}
	}

	out := make([]*models.ArmyList, len(placements))
	for i, p := range placements {
		if p.ListID != "" {
			if l, ok := byID[p.ListID]; ok {
				out[i] = l
				continue
			}
		}
		if l, ok := byEventPlayer[p.EventID+"|"+normName(p.PlayerName)]; ok {
			out[i] = l
			continue
		}
		out[i] = matchByURL(p, eventByID, byURL)
	}
	return out
}

// matchByURL is the last-resort join: candidate lists sharing the event's
// source URL, scored on faction and detachment agreement.
func matchByURL(p models.Placement, eventByID map[string]models.Event, byURL map[string][]*models.ArmyList) *models.ArmyList {
	ev, ok := eventByID[p.EventID]
	if !ok || ev.SourceURL == "" {
		return nil
	}

	pFaction, _, _ := models.ResolveFaction(p.Faction, p.Subfaction)
	var best *models.ArmyList
	bestScore := 0
	for _, l := range byURL[ev.SourceURL] {
		score := 0
		lFaction, _, _ := models.ResolveFaction(l.Faction, l.Subfaction)
		if pFaction != "" && lFaction == pFaction {
			score += 2
		}
		if p.Detachment != "" && strings.EqualFold(p.Detachment, l.Detachment) {
			score++
		}
		if score > bestScore {
			best = l
			bestScore = score
		}
	}
	return best
}

// normName canonicalizes player names for join purposes.
func normName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
