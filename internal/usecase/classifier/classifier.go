// Package classifier gates unsafe queries and sizes retrieval by query complexity.
package classifier

import (
	"strings"

	"github.com/futig/nelson-backend/internal/entity"
)

// Classify lowercases the query and refuses it when it matches the
// emergency lexicon or, failing that, the personal-advice lexicon.
func Classify(query string) entity.SafetyVerdict {
	q := strings.ToLower(query)

	if containsAny(q, emergencyLexicon) {
		return entity.SafetyVerdict{
			Safe:     false,
			Category: entity.SafetyCategoryEmergency,
			Reason:   EmergencyAdvisory,
		}
	}

	if containsAny(q, personalAdviceLexicon) {
		return entity.SafetyVerdict{
			Safe:     false,
			Category: entity.SafetyCategoryPersonalAdvice,
			Reason:   PersonalAdviceAdvisory,
		}
	}

	return entity.SafetyVerdict{Safe: true}
}

// Complexity scores the query and maps the score onto the tier table.
func Complexity(query string) entity.Complexity {
	score := ComplexityScore(query)
	for _, t := range tiers {
		if score >= t.MinScore {
			return entity.Complexity{
				Level:              t.Level,
				Score:              score,
				SuggestedDocCount:  t.DocCount,
				SuggestedThreshold: t.Threshold,
			}
		}
	}
	last := tiers[len(tiers)-1]
	return entity.Complexity{
		Level:              last.Level,
		Score:              score,
		SuggestedDocCount:  last.DocCount,
		SuggestedThreshold: last.Threshold,
	}
}

func ComplexityScore(query string) int {
	q := strings.ToLower(query)
	words := len(strings.Fields(q))

	score := 0
	if words > longQueryWords {
		score += weightLong
	}
	if words > veryLongQueryWords {
		score += weightVeryLong
	}
	if strings.Count(q, "?") > 1 {
		score += weightMultiQ
	}
	if containsAny(q, clinicalKeywords) {
		score += weightClinical
	}
	if containsAny(" "+q+" ", comparisonKeywords) {
		score += weightComparison
	}
	return score
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
