package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/api/middleware"
	"github.com/angelmondragon/oddsvault-backend/api/responses"
	"github.com/angelmondragon/oddsvault-backend/api/validators"
	"github.com/angelmondragon/oddsvault-backend/internal/plans"
	"github.com/angelmondragon/oddsvault-backend/internal/users"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

type profileLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*users.UserDTO, error)
}

// viewerCountry prefers ?country= and falls back to the signed-in user's
// profile. An empty result lets pricing fall back to the home market.
func viewerCountry(r *http.Request, profiles profileLookup) string {
	if country := strings.TrimSpace(r.URL.Query().Get("country")); country != "" {
		return country
	}
	s, ok := middleware.SessionFrom(r.Context())
	if !ok || profiles == nil {
		return ""
	}
	profile, err := profiles.Get(r.Context(), s.UserID)
	if err != nil || profile == nil {
		return ""
	}
	return profile.Country
}

// ListPlans returns the catalog priced for the viewer. Admins may pass
// ?includeInactive=true.
func ListPlans(svc plans.Service, profiles profileLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive, err := validators.ParseQueryBool(r, "includeInactive", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if s, ok := middleware.SessionFrom(r.Context()); !ok || !s.IsAdmin() {
			includeInactive = false
		}

		result, err := svc.List(r.Context(), plans.ListParams{
			IncludeInactive: includeInactive,
			Country:         viewerCountry(r, profiles),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetPlan accepts an id or a slug in {planRef}.
func GetPlan(svc plans.Service, profiles profileLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(chi.URLParam(r, "planRef"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "plan reference required"))
			return
		}
		view, err := svc.Get(r.Context(), ref, viewerCountry(r, profiles))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// QuotePlan prices a plan for ?durationDays= in the viewer's country.
func QuotePlan(svc plans.Service, profiles profileLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "planRef")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		duration, err := validators.ParseQueryInt(r, "durationDays", 0, 0, 3650)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		_, quote, err := svc.Quote(r.Context(), id, duration, viewerCountry(r, profiles))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func AdminCreatePlan(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body plans.CreatePlanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

func AdminUpdatePlan(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body plans.UpdatePlanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

func AdminDeletePlan(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "planID")
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

func AdminListPlanPrices(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prices, err := svc.ListPrices(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prices)
	}
}

// AdminUpsertPlanPrice sets the price for one (country, duration) pair.
func AdminUpsertPlanPrice(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body plans.UpsertPriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := svc.UpsertPrice(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, price)
	}
}

func AdminDeletePlanPrice(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID, err := validators.ParseUUIDParam(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		priceID, err := validators.ParseUUIDParam(r, "priceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePrice(r.Context(), planID, priceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
