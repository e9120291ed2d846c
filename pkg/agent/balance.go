package agent

import (
	"context"
	"fmt"

	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/models"
)

// BalanceWatcher extracts balance updates and edition releases from the
// publisher's landing page and filters out those already tracked.
type BalanceWatcher struct {
	backend llm.Backend
	policy  RetryPolicy
}

// NewBalanceWatcher builds a balance watcher over the given backend.
func NewBalanceWatcher(backend llm.Backend, policy RetryPolicy) *BalanceWatcher {
	return &BalanceWatcher{backend: backend, policy: policy}
}

// Name returns the agent's stable identifier.
func (w *BalanceWatcher) Name() string { return "balance-watcher" }

// Execute extracts significant events from pageHTML and returns only those
// whose content-addressed ID is not in knownIDs. The model sees the whole
// page; dedup happens here, on real IDs, not in the prompt.
func (w *BalanceWatcher) Execute(ctx context.Context, pageHTML string, knownIDs []string) ([]models.SignificantEvent, error) {
	var out struct {
		Events []models.SignificantEvent `json:"events"`
	}
	user := fmt.Sprintf(balanceUserTemplate, pageHTML)
	if err := execJSON(ctx, w.backend, w.policy, w.Name(), balanceSystemPrompt, user, 8192, &out); err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = struct{}{}
	}

	fresh := make([]models.SignificantEvent, 0, len(out.Events))
	for _, ev := range out.Events {
		if ev.EventType != models.EventTypeBalanceUpdate && ev.EventType != models.EventTypeEditionRelease {
			ev.EventType = models.EventTypeBalanceUpdate
		}
		ev.ID = ev.NewID()
		ev.Confidence = models.NormalizeConfidence(string(ev.Confidence))
		if _, dup := known[ev.ID]; dup {
			continue
		}
		fresh = append(fresh, ev)
	}
	return fresh, nil
}
