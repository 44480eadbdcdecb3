package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/oddsvault-backend/api/middleware"
	"github.com/angelmondragon/oddsvault-backend/api/responses"
	"github.com/angelmondragon/oddsvault-backend/api/validators"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// requireSession writes 401 and returns false when the route was reached
// without Auth.
func requireSession(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (middleware.Session, bool) {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return middleware.Session{}, false
	}
	return s, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

type pageQuery struct {
	Limit  int
	Cursor string
}

func parsePage(r *http.Request) (pageQuery, error) {
	limit, err := validators.ParseQueryInt(r, "limit", defaultPageSize, 1, maxPageSize)
	if err != nil {
		return pageQuery{}, err
	}
	return pageQuery{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}, nil
}
