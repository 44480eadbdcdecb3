package sportsdata

import "time"

type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type Fixture struct {
	ID         int64     `json:"id"`
	KickoffAt  time.Time `json:"kickoff_at"`
	Status     string    `json:"status"`
	LeagueID   int64     `json:"league_id"`
	LeagueName string    `json:"league_name"`
	Country    string    `json:"country"`
	Season     int       `json:"season"`
	Home       Team      `json:"home"`
	Away       Team      `json:"away"`
	HomeGoals  *int      `json:"home_goals,omitempty"`
	AwayGoals  *int      `json:"away_goals,omitempty"`
}

type MarketValue struct {
	Label string  `json:"label"`
	Odd   float64 `json:"odd"`
}

// Market is one bookmaker bet, e.g. "Match Winner" or "Goals Over/Under".
type Market struct {
	Name   string        `json:"name"`
	Values []MarketValue `json:"values"`
}

type FixtureOdds struct {
	FixtureID int64    `json:"fixture_id"`
	Bookmaker string   `json:"bookmaker"`
	Markets   []Market `json:"markets"`
}

type Standing struct {
	Rank     int    `json:"rank"`
	TeamID   int64  `json:"team_id"`
	TeamName string `json:"team_name"`
	Points   int    `json:"points"`
	GoalDiff int    `json:"goal_diff"`
	Played   int    `json:"played"`
	Won      int    `json:"won"`
	Drawn    int    `json:"drawn"`
	Lost     int    `json:"lost"`
	Form     string `json:"form,omitempty"`
	Group    string `json:"group,omitempty"`
}

type envelope[T any] struct {
	Response T `json:"response"`
}

type fixtureItem struct {
	Fixture struct {
		ID     int64     `json:"id"`
		Date   time.Time `json:"date"`
		Status struct {
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Country string `json:"country"`
		Season  int    `json:"season"`
	} `json:"league"`
	Teams struct {
		Home Team `json:"home"`
		Away Team `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

type oddsItem struct {
	Bookmakers []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Bets []struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Values []struct {
				Value any    `json:"value"`
				Odd   string `json:"odd"`
			} `json:"values"`
		} `json:"bets"`
	} `json:"bookmakers"`
}

type standingsItem struct {
	League struct {
		ID        int64 `json:"id"`
		Standings [][]struct {
			Rank      int    `json:"rank"`
			Points    int    `json:"points"`
			GoalsDiff int    `json:"goalsDiff"`
			Group     string `json:"group"`
			Form      string `json:"form"`
			Team      Team   `json:"team"`
			All       struct {
				Played int `json:"played"`
				Win    int `json:"win"`
				Draw   int `json:"draw"`
				Lose   int `json:"lose"`
			} `json:"all"`
		} `json:"standings"`
	} `json:"league"`
}

func mapFixtures(items []fixtureItem) []Fixture {
	out := make([]Fixture, 0, len(items))
	for _, item := range items {
		out = append(out, Fixture{
			ID:         item.Fixture.ID,
			KickoffAt:  item.Fixture.Date.UTC(),
			Status:     item.Fixture.Status.Short,
			LeagueID:   item.League.ID,
			LeagueName: item.League.Name,
			Country:    item.League.Country,
			Season:     item.League.Season,
			Home:       item.Teams.Home,
			Away:       item.Teams.Away,
			HomeGoals:  item.Goals.Home,
			AwayGoals:  item.Goals.Away,
		})
	}
	return out
}
