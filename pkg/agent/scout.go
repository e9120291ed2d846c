package agent

import (
	"context"
	"fmt"

	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/models"
)

// EventStub is one tournament mention extracted from coverage. Date is empty
// when the article did not state it; callers decide whether to default it.
type EventStub struct {
	Name        string            `json:"name"`
	Date        string            `json:"date,omitempty"`
	Location    string            `json:"location,omitempty"`
	PlayerCount int               `json:"player_count,omitempty"`
	RoundCount  int               `json:"round_count,omitempty"`
	EventType   string            `json:"event_type,omitempty"`
	Confidence  models.Confidence `json:"confidence,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

// EventScout extracts tournament event stubs from article HTML.
type EventScout struct {
	backend llm.Backend
	policy  RetryPolicy
}

// NewEventScout builds an event scout over the given backend.
func NewEventScout(backend llm.Backend, policy RetryPolicy) *EventScout {
	return &EventScout{backend: backend, policy: policy}
}

// Name returns the agent's stable identifier.
func (s *EventScout) Name() string { return "event-scout" }

// Execute extracts every event stub mentioned in articleHTML. articleDate is
// context for the model only; stub dates stay empty unless the source states
// them.
func (s *EventScout) Execute(ctx context.Context, articleHTML, articleDate string) ([]EventStub, error) {
	var out struct {
		Events []EventStub `json:"events"`
	}
	user := fmt.Sprintf(scoutUserTemplate, articleDate, articleHTML)
	if err := execJSON(ctx, s.backend, s.policy, s.Name(), scoutSystemPrompt, user, 4096, &out); err != nil {
		return nil, err
	}
	for i := range out.Events {
		out.Events[i].Confidence = models.NormalizeConfidence(string(out.Events[i].Confidence))
	}
	return out.Events, nil
}
