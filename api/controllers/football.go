package controllers

import (
	"context"
	"math"
	"net/http"

	"github.com/angelmondragon/oddsvault-backend/api/responses"
	"github.com/angelmondragon/oddsvault-backend/api/validators"
	"github.com/angelmondragon/oddsvault-backend/internal/importer"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/sportsdata"
)

// FootballData is the read side of the upstream sports API used by the
// match-detail pages.
type FootballData interface {
	HeadToHead(ctx context.Context, homeTeamID, awayTeamID int64, last int) ([]sportsdata.Fixture, error)
	Standings(ctx context.Context, leagueID int64, season int) ([]sportsdata.Standing, error)
}

// SyncPredictions pulls fixtures and odds for a date and stores the picks
// that clear the thresholds. With "preview": true nothing is written.
func SyncPredictions(svc importer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		if svc == nil {
			unavailable(w, r, logg, "importer")
			return
		}

		var body importer.Request
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.Preview {
			preview, err := svc.Preview(r.Context(), body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, preview)
			return
		}

		result, err := svc.Sync(r.Context(), s.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func HeadToHead(client FootballData, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			unavailable(w, r, logg, "sports data")
			return
		}
		home, err := validators.ParseQueryInt(r, "home", 0, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		away, err := validators.ParseQueryInt(r, "away", 0, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		last, err := validators.ParseQueryInt(r, "last", 10, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fixtures, err := client.HeadToHead(r.Context(), int64(home), int64(away), last)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if fixtures == nil {
			fixtures = []sportsdata.Fixture{}
		}
		responses.WriteSuccess(w, fixtures)
	}
}

func Standings(client FootballData, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			unavailable(w, r, logg, "sports data")
			return
		}
		league, err := validators.ParseQueryInt(r, "league", 0, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		season, err := validators.ParseQueryInt(r, "season", 0, 1900, 2200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		table, err := client.Standings(r.Context(), int64(league), season)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if table == nil {
			table = []sportsdata.Standing{}
		}
		responses.WriteSuccess(w, table)
	}
}
