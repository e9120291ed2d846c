package agent

import (
	"context"
	"fmt"

	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/models"
)

// Discrepancy severities, ordered by weight.
const (
	SeverityMinor    = "minor"
	SeverityMajor    = "major"
	SeverityCritical = "critical"
)

// Discrepancy is one disagreement between an extraction and its source.
type Discrepancy struct {
	Severity            string `json:"severity"`
	Field               string `json:"field,omitempty"`
	Detail              string `json:"detail"`
	SuggestedCorrection string `json:"suggested_correction,omitempty"`
}

// FactCheckVerdict is the fact checker's result. Verified is computed here
// from the discrepancy list, never taken from the model.
type FactCheckVerdict struct {
	Verified      bool
	Discrepancies []Discrepancy
	Confidence    models.Confidence
	Notes         string
}

// FactChecker verifies extracted data against its source text.
type FactChecker struct {
	backend llm.Backend
	policy  RetryPolicy
}

// NewFactChecker builds a fact checker over the given backend.
func NewFactChecker(backend llm.Backend, policy RetryPolicy) *FactChecker {
	return &FactChecker{backend: backend, policy: policy}
}

// Name returns the agent's stable identifier.
func (f *FactChecker) Name() string { return "fact-checker" }

// Execute verifies extractedJSON against sourceText. Verification fails on
// any critical discrepancy or more than two major ones.
func (f *FactChecker) Execute(ctx context.Context, extractedJSON, sourceText string) (*FactCheckVerdict, error) {
	var out struct {
		Discrepancies []Discrepancy `json:"discrepancies"`
		Confidence    string        `json:"confidence"`
		Notes         string        `json:"notes"`
	}
	user := fmt.Sprintf(factCheckUserTemplate, extractedJSON, sourceText)
	if err := execJSON(ctx, f.backend, f.policy, f.Name(), factCheckSystemPrompt, user, 2048, &out); err != nil {
		return nil, err
	}

	return &FactCheckVerdict{
		Verified:      Verified(out.Discrepancies),
		Discrepancies: out.Discrepancies,
		Confidence:    models.NormalizeConfidence(out.Confidence),
		Notes:         out.Notes,
	}, nil
}

// Verified applies the verdict rule: fail on any critical discrepancy, or
// on more than two major ones.
func Verified(discrepancies []Discrepancy) bool {
	major := 0
	for _, d := range discrepancies {
		switch d.Severity {
		case SeverityCritical:
			return false
		case SeverityMajor:
			major++
		}
	}
	return major <= 2
}
