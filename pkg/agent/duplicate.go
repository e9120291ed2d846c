package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/metaforge/metaforge/pkg/llm"
)

// DuplicateVerdict is the duplicate detector's judgement on one candidate.
type DuplicateVerdict struct {
	IsDuplicate     bool     `json:"is_duplicate"`
	MatchingIndex   int      `json:"matching_index"`
	SimilarityScore float64  `json:"similarity_score"`
	Reasons         []string `json:"reasons,omitempty"`
}

// DuplicateDetector decides whether a candidate entity duplicates one of a
// set of existing summaries. Content-addressed IDs catch exact re-ingests;
// this agent catches fuzzy ones ("LVO 2026" vs "Las Vegas Open 2026").
type DuplicateDetector struct {
	backend llm.Backend
	policy  RetryPolicy
}

// NewDuplicateDetector builds a duplicate detector over the given backend.
func NewDuplicateDetector(backend llm.Backend, policy RetryPolicy) *DuplicateDetector {
	return &DuplicateDetector{backend: backend, policy: policy}
}

// Name returns the agent's stable identifier.
func (d *DuplicateDetector) Name() string { return "duplicate-detector" }

// Execute compares candidate against the indexed existing summaries.
// The returned score is clamped to [0,1]; MatchingIndex is -1 when no
// existing record matches.
func (d *DuplicateDetector) Execute(ctx context.Context, candidate string, existing []string) (*DuplicateVerdict, error) {
	if len(existing) == 0 {
		return &DuplicateVerdict{MatchingIndex: -1}, nil
	}

	var numbered strings.Builder
	for i, summary := range existing {
		fmt.Fprintf(&numbered, "%d. %s\n", i, summary)
	}

	var out DuplicateVerdict
	user := fmt.Sprintf(duplicateUserTemplate, candidate, numbered.String())
	if err := execJSON(ctx, d.backend, d.policy, d.Name(), duplicateSystemPrompt, user, 1024, &out); err != nil {
		return nil, err
	}

	if out.SimilarityScore < 0 {
		out.SimilarityScore = 0
	}
	if out.SimilarityScore > 1 {
		out.SimilarityScore = 1
	}
	if out.MatchingIndex < 0 || out.MatchingIndex >= len(existing) {
		out.MatchingIndex = -1
		out.IsDuplicate = false
	}
	if !out.IsDuplicate {
		out.MatchingIndex = -1
	}
	return &out, nil
}
