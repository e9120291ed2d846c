package platform

import "sort"

// ComputeStandings recomputes final standings from pairings instead of
// trusting server-side placements, which are frequently stale or hidden.
// Wins, losses, draws, and battle points accumulate per player across all
// their pairings; ranking is wins descending, then battle points
// descending, with dense ranks starting at 1. Player metadata (faction,
// list id) joins from the players listing by id, falling back to the
// pairing's inline player data.
func ComputeStandings(pairings []PlatformPairing, players []PlatformPlayer) []Standing {
	byID := make(map[string]*Standing)
	var order []string

	track := func(p PairingPlayer) *Standing {
		if s, ok := byID[p.ID]; ok {
			return s
		}
		s := &Standing{PlayerID: p.ID, PlayerName: p.Name, Faction: p.Faction}
		byID[p.ID] = s
		order = append(order, p.ID)
		return s
	}

	for _, pair := range pairings {
		p1 := track(pair.Player1)
		p2 := track(pair.Player2)

		applyResult(p1, pair.Player1.Result)
		applyResult(p2, pair.Player2.Result)
		p1.BattlePoints += float64(pair.Player1.Points)
		p2.BattlePoints += float64(pair.Player2.Points)
	}

	// Join registrant metadata; the players listing is authoritative for
	// faction and list id.
	playerMeta := make(map[string]PlatformPlayer, len(players))
	for _, p := range players {
		playerMeta[p.ID] = p
	}
	for id, s := range byID {
		if meta, ok := playerMeta[id]; ok {
			if meta.Faction != "" {
				s.Faction = meta.Faction
			}
			s.ListID = meta.ListID
			if meta.Name != "" {
				s.PlayerName = meta.Name
			}
		}
	}

	out := make([]Standing, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].BattlePoints > out[j].BattlePoints
	})

	// Dense ranks: equal (wins, battle points) share a rank.
	rank := 0
	for i := range out {
		if i == 0 || out[i].Wins != out[i-1].Wins || out[i].BattlePoints != out[i-1].BattlePoints {
			rank++
		}
		out[i].Rank = rank
	}
	return out
}

func applyResult(s *Standing, code int) {
	switch code {
	case codeWin:
		s.Wins++
	case codeDraw:
		s.Draws++
	case codeLoss:
		s.Losses++
	}
}
