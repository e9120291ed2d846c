package agent

import (
	"context"
	"fmt"

	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/models"
)

// NormalizedList is the list normalizer's confidence envelope.
type NormalizedList struct {
	List       models.ArmyList
	Confidence models.Confidence
	Notes      string
}

// ListNormalizer turns raw army-list text the deterministic parser could
// not handle into a structured list. It is the escalation path: the sync
// pipeline only calls it when the parser returned no units.
type ListNormalizer struct {
	backend llm.Backend
	policy  RetryPolicy
}

// NewListNormalizer builds a list normalizer over the given backend.
func NewListNormalizer(backend llm.Backend, policy RetryPolicy) *ListNormalizer {
	return &ListNormalizer{backend: backend, policy: policy}
}

// Name returns the agent's stable identifier.
func (n *ListNormalizer) Name() string { return "list-normalizer" }

// Execute normalizes rawText into a structured army list. factionHint may be
// empty; it steers the model only when the text itself is ambiguous.
func (n *ListNormalizer) Execute(ctx context.Context, rawText, factionHint, playerName string) (*NormalizedList, error) {
	var out struct {
		Faction     string        `json:"faction"`
		Subfaction  string        `json:"subfaction"`
		Detachment  string        `json:"detachment"`
		TotalPoints int           `json:"total_points"`
		Units       []models.Unit `json:"units"`
		Confidence  string        `json:"confidence"`
		Notes       string        `json:"notes"`
	}

	hint := ""
	if factionHint != "" {
		hint = fmt.Sprintf(" The platform tagged this list as %q.", factionHint)
	}
	user := fmt.Sprintf(normalizerUserTemplate, hint, playerName, rawText)
	if err := execJSON(ctx, n.backend, n.policy, n.Name(), normalizerSystemPrompt, user, 4096, &out); err != nil {
		return nil, err
	}

	confidence := models.NormalizeConfidence(out.Confidence)
	list := models.ArmyList{
		Faction:     out.Faction,
		Subfaction:  out.Subfaction,
		Detachment:  out.Detachment,
		TotalPoints: out.TotalPoints,
		Units:       out.Units,
		RawText:     rawText,
		PlayerName:  playerName,
		Confidence:  confidence,
	}
	if list.Faction == "" {
		list.Faction = factionHint
	}
	list.EnsureTotalPoints()
	list.ID = list.NewID()

	return &NormalizedList{List: list, Confidence: confidence, Notes: out.Notes}, nil
}
