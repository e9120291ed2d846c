package models

// Confidence grades how much we trust an extracted record.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// NeedsReview reports whether a record at this confidence level should be
// routed to the review queue. Low confidence never blocks writing; it only
// flags the record for a human pass.
func (c Confidence) NeedsReview() bool {
	return c == ConfidenceLow
}

// Valid reports whether c is one of the known confidence levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// NormalizeConfidence coerces free-form model output ("High", "HIGH", "")
// into a valid confidence level, defaulting to medium.
func NormalizeConfidence(s string) Confidence {
	switch s {
	case "high", "High", "HIGH":
		return ConfidenceHigh
	case "low", "Low", "LOW":
		return ConfidenceLow
	case "medium", "Medium", "MEDIUM":
		return ConfidenceMedium
	}
	return ConfidenceMedium
}
