package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/api/responses"
	"github.com/angelmondragon/oddsvault-backend/api/validators"
	"github.com/angelmondragon/oddsvault-backend/internal/stats"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// DeadLetters is the operator view over parked outbox events.
type DeadLetters interface {
	List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, id uuid.UUID) (*models.OutboxDLQ, error)
}

type deadLetterPage struct {
	Items  []models.OutboxDLQ `json:"items"`
	Cursor string             `json:"cursor"`
}

func AdminDashboard(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dash)
	}
}

func AdminListDeadLetters(repo DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := pagination.ParseCursor(page.Cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		rows, err := repo.List(r.Context(), page.Limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, next := pagination.Trim(rows, page.Limit, func(row models.OutboxDLQ) pagination.Cursor {
			return pagination.Cursor{At: row.FailedAt, ID: row.ID}
		})
		if items == nil {
			items = []models.OutboxDLQ{}
		}
		responses.WriteSuccess(w, deadLetterPage{Items: items, Cursor: next})
	}
}

// AdminReplayDeadLetter re-queues a parked event for the next publisher pass.
func AdminReplayDeadLetter(repo DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "dlqID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := repo.Replay(r.Context(), id)
		if err != nil {
			if errors.Is(err, outbox.ErrDeadLetterNotFound) {
				err = pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "dead letter not found")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "event_id", entry.EventID.String()), "outbox.dlq_replayed")
		}
		responses.WriteSuccess(w, entry)
	}
}
