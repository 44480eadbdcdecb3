package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/oddsvault-backend/api/middleware"
	"github.com/angelmondragon/oddsvault-backend/api/responses"
	"github.com/angelmondragon/oddsvault-backend/api/validators"
	"github.com/angelmondragon/oddsvault-backend/internal/predictions"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

// predictionViewer is anonymous unless OptionalAuth attached a session.
func predictionViewer(r *http.Request) predictions.Viewer {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		return predictions.Viewer{}
	}
	return predictions.Viewer{UserID: s.UserID, IsAdmin: s.IsAdmin()}
}

func parsePredictionList(r *http.Request) (predictions.ListParams, error) {
	page, err := parsePage(r)
	if err != nil {
		return predictions.ListParams{}, err
	}
	date, err := validators.ParseQueryDate(r, "date")
	if err != nil {
		return predictions.ListParams{}, err
	}
	q := r.URL.Query()
	return predictions.ListParams{
		PlanType: strings.TrimSpace(q.Get("planType")),
		Date:     date,
		Status:   strings.TrimSpace(q.Get("status")),
		Source:   strings.TrimSpace(q.Get("source")),
		Limit:    page.Limit,
		Cursor:   page.Cursor,
	}, nil
}

// ListPredictions serves free plans to everyone. Paid plans need an active
// subscription to that plan.
func ListPredictions(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parsePredictionList(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), predictionViewer(r), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetPrediction(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "predictionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.Get(r.Context(), predictionViewer(r), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}

func AdminCreatePrediction(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body predictions.PredictionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, p)
	}
}

func AdminUpdatePrediction(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "predictionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body predictions.PredictionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}

func AdminDeletePrediction(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "predictionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// AdminRecordPredictionResult settles a pick as won, lost or void.
func AdminRecordPredictionResult(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "predictionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body predictions.ResultRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.RecordResult(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}

func ListCorrectScores(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parsePredictionList(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListCorrectScores(r.Context(), predictionViewer(r), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetCorrectScore(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "predictionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.GetCorrectScore(r.Context(), predictionViewer(r), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}

func AdminCreateCorrectScore(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body predictions.CorrectScoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.CreateCorrectScore(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, p)
	}
}

func AdminUpdateCorrectScore(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "predictionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body predictions.CorrectScoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.UpdateCorrectScore(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}

func AdminDeleteCorrectScore(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "predictionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCorrectScore(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func AdminRecordCorrectScoreResult(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "predictionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body predictions.ResultRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.RecordCorrectScoreResult(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}
