package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/models"
)

// HarvestedPlacement is one extracted final standing, plus the raw army
// list when the article embedded one.
type HarvestedPlacement struct {
	Rank         int     `json:"rank"`
	PlayerName   string  `json:"player_name"`
	Faction      string  `json:"faction,omitempty"`
	Subfaction   string  `json:"subfaction,omitempty"`
	Detachment   string  `json:"detachment,omitempty"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Draws        int     `json:"draws"`
	BattlePoints float64 `json:"battle_points,omitempty"`
	RawList      string  `json:"raw_list,omitempty"`
	Allegiance   string  `json:"-"`
}

// HarvestResult is the result harvester's confidence envelope.
type HarvestResult struct {
	Placements []HarvestedPlacement
	Confidence models.Confidence
	Notes      string
}

// ResultHarvester extracts one event's placements from article HTML.
type ResultHarvester struct {
	backend llm.Backend
	policy  RetryPolicy
}

// NewResultHarvester builds a result harvester over the given backend.
func NewResultHarvester(backend llm.Backend, policy RetryPolicy) *ResultHarvester {
	return &ResultHarvester{backend: backend, policy: policy}
}

// Name returns the agent's stable identifier.
func (h *ResultHarvester) Name() string { return "result-harvester" }

// Execute extracts the placements of the stub's event from articleHTML.
// Faction names are coerced into the canonical set after extraction;
// chapter-level identities are promoted to faction or demoted to subfaction.
func (h *ResultHarvester) Execute(ctx context.Context, articleHTML string, stub EventStub) (*HarvestResult, error) {
	var out struct {
		Placements []HarvestedPlacement `json:"placements"`
		Confidence string               `json:"confidence"`
		Notes      string               `json:"notes"`
	}
	user := fmt.Sprintf(harvesterUserTemplate,
		stub.Name, stub.Date, strings.Join(models.CanonicalFactionNames(), ", "), articleHTML)
	if err := execJSON(ctx, h.backend, h.policy, h.Name(), harvesterSystemPrompt, user, 8192, &out); err != nil {
		return nil, err
	}

	for i := range out.Placements {
		p := &out.Placements[i]
		p.Faction, p.Subfaction, p.Allegiance = models.ResolveFaction(p.Faction, p.Subfaction)
	}
	return &HarvestResult{
		Placements: out.Placements,
		Confidence: models.NormalizeConfidence(out.Confidence),
		Notes:      out.Notes,
	}, nil
}
