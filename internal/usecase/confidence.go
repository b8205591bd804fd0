package usecase

import "github.com/pricelens/backend/internal/domain"

// Score cut-offs for confidence tiers
const (
	highConfidenceScore   = 0.80
	mediumConfidenceScore = 0.60
)

// IsHighConfidence reports whether a match is exact and scored at least 0.80.
// A nil score counts as zero.
func IsHighConfidence(score *float64, exactMatch bool) bool {
	return exactMatch && scoreOrZero(score) >= highConfidenceScore
}

// ClassifyConfidence derives the confidence tier of a match
func ClassifyConfidence(score *float64, exactMatch bool) domain.Confidence {
	if IsHighConfidence(score, exactMatch) {
		return domain.ConfidenceHigh
	}
	if scoreOrZero(score) >= mediumConfidenceScore {
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceLow
}

func scoreOrZero(score *float64) float64 {
	if score == nil {
		return 0
	}
	return *score
}
