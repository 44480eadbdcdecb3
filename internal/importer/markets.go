package importer

import (
	"strings"

	"github.com/angelmondragon/oddsvault-backend/pkg/sportsdata"
)

const (
	marketMatchWinner = "Match Winner"
	marketGoals       = "Goals Over/Under"
	marketBothScore   = "Both Teams Score"
)

// candidate is one priced outcome before confidence and odds filtering.
type candidate struct {
	fixture sportsdata.Fixture
	market  string
	odds    float64
}

var winnerLabels = map[string]string{
	"home": "home_win",
	"draw": "draw",
	"away": "away_win",
}

// candidatesFor enumerates match winner, goal lines and both-teams-to-score
// outcomes. Other bookmaker markets are ignored.
func candidatesFor(fixture sportsdata.Fixture, odds *sportsdata.FixtureOdds) []candidate {
	if odds == nil {
		return nil
	}
	var out []candidate
	for _, market := range odds.Markets {
		for _, value := range market.Values {
			key, ok := marketKey(market.Name, value.Label)
			if !ok || value.Odd <= 1 {
				continue
			}
			out = append(out, candidate{fixture: fixture, market: key, odds: value.Odd})
		}
	}
	return out
}

func marketKey(market, label string) (string, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	switch market {
	case marketMatchWinner:
		key, ok := winnerLabels[label]
		return key, ok
	case marketGoals:
		// "Over 2.5" -> "over_2.5"
		parts := strings.Fields(label)
		if len(parts) != 2 || (parts[0] != "over" && parts[0] != "under") {
			return "", false
		}
		return parts[0] + "_" + parts[1], true
	case marketBothScore:
		if label == "yes" || label == "no" {
			return "btts_" + label, true
		}
	}
	return "", false
}
