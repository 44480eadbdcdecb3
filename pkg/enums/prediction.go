package enums

import (
	"fmt"
	"strings"
)

// PredictionStatus is the settlement state of a pick.
type PredictionStatus string

const (
	PredictionStatusPending PredictionStatus = "pending"
	PredictionStatusWon     PredictionStatus = "won"
	PredictionStatusLost    PredictionStatus = "lost"
	PredictionStatusVoid    PredictionStatus = "void"
)

var validPredictionStatuses = []PredictionStatus{
	PredictionStatusPending,
	PredictionStatusWon,
	PredictionStatusLost,
	PredictionStatusVoid,
}

func (p PredictionStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PredictionStatus.
func (p PredictionStatus) IsValid() bool {
	for _, candidate := range validPredictionStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParsePredictionStatus(value string) (PredictionStatus, error) {
	for _, candidate := range validPredictionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid prediction status %q", value)
}

// Settled reports whether a result has been recorded.
func (p PredictionStatus) Settled() bool {
	return p != PredictionStatusPending
}

// Well-known plan slugs referenced by business rules. Other slugs are
// defined by admins at runtime.
const (
	PlanTypeFree       = "free"
	PlanTypeDaily2Odds = "daily_2_odds"
)

// NormalizePlanSlug lowercases a plan slug and folds dashes and inner
// whitespace into underscores.
func NormalizePlanSlug(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	return strings.Join(strings.Fields(strings.ReplaceAll(slug, "-", "_")), "_")
}
