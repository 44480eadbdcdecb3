package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/api/responses"
	"github.com/angelmondragon/oddsvault-backend/api/validators"
	"github.com/angelmondragon/oddsvault-backend/internal/transactions"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

// InitiateTransaction records a pending payment. The amount comes from the
// plan's price for the caller's country, never from the request.
func InitiateTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		var body transactions.InitiateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.Initiate(r.Context(), s.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// CompleteTransaction is the simulated gateway callback; it is only routed
// when simulated checkout is enabled.
func CompleteTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Complete(r.Context(), s.UserID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logCompletionWarning(r.Context(), logg, result)
		responses.WriteSuccess(w, result)
	}
}

func ListMyTransactions(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListMine(r.Context(), s.UserID, transactions.ListParams{
			Status: r.URL.Query().Get("status"),
			Limit:  page.Limit,
			Cursor: page.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetTransaction lets owners read their own rows and admins read any.
func GetTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.Get(r.Context(), s.UserID, s.IsAdmin(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

func AdminListTransactions(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListAll(r.Context(), transactions.ListParams{
			Status: r.URL.Query().Get("status"),
			Limit:  page.Limit,
			Cursor: page.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminApproveTransaction completes a manually verified payment. A failed
// entitlement update is reported in the body, not as an error status.
func AdminApproveTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Approve(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logCompletionWarning(r.Context(), logg, result)
		responses.WriteSuccess(w, result)
	}
}

func AdminFailTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Fail, logg)
}

func AdminRefundTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Refund, logg)
}

func transition(apply func(context.Context, uuid.UUID) (*models.Transaction, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := apply(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

func logCompletionWarning(ctx context.Context, logg *logger.Logger, result *transactions.CompletionResult) {
	if logg == nil || result == nil || result.SubscriptionUpdated {
		return
	}
	fields := map[string]any{"warning": result.Warning}
	if result.Transaction != nil {
		fields["transaction_id"] = result.Transaction.ID.String()
	}
	logg.Warn(logg.WithFields(ctx, fields), "transaction.entitlement_not_updated")
}
