package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/internal/plans"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// Service records payment attempts and drives entitlement after payment.
type Service interface {
	Initiate(ctx context.Context, userID uuid.UUID, req InitiateRequest) (*models.Transaction, error)
	Complete(ctx context.Context, userID, id uuid.UUID) (*CompletionResult, error)
	Approve(ctx context.Context, id uuid.UUID) (*CompletionResult, error)
	Fail(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Refund(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Get(ctx context.Context, viewerID uuid.UUID, isAdmin bool, id uuid.UUID) (*models.Transaction, error)
	ListMine(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error)
	ListAll(ctx context.Context, params ListParams) (*ListResult, error)
	CountPending(ctx context.Context) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type priceQuoter interface {
	Quote(ctx context.Context, planID uuid.UUID, durationDays int, country string) (*models.Plan, *plans.PriceQuote, error)
}

type entitlementUpdater interface {
	Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error)
	ApplySubscriptionPayment(ctx context.Context, userID, planID uuid.UUID, durationDays int) (*models.UserSubscription, error)
	ApplyActivationPayment(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams bundles transaction service dependencies.
type ServiceParams struct {
	TxRunner               txRunner
	Repo                   Repository
	Plans                  priceQuoter
	Subscriptions          entitlementUpdater
	Users                  userLookup
	Outbox                 outbox.Emitter
	Logger                 *logger.Logger
	ActivationDurationDays int
	Now                    func() time.Time
}

type service struct {
	tx             txRunner
	repo           Repository
	plans          priceQuoter
	subs           entitlementUpdater
	users          userLookup
	outbox         outbox.Emitter
	logg           *logger.Logger
	activationDays int
	now            func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.TxRunner == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("transactions repository required")
	case params.Plans == nil:
		return nil, fmt.Errorf("price quoter required")
	case params.Subscriptions == nil:
		return nil, fmt.Errorf("subscriptions service required")
	case params.Users == nil:
		return nil, fmt.Errorf("user lookup required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	days := params.ActivationDurationDays
	if days <= 0 {
		days = 30
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:             params.TxRunner,
		repo:           params.Repo,
		plans:          params.Plans,
		subs:           params.Subscriptions,
		users:          params.Users,
		outbox:         params.Outbox,
		logg:           params.Logger,
		activationDays: days,
		now:            now,
	}, nil
}

// Initiate prices the request from the plan's country table and stores a
// pending transaction together with its transaction_created event.
func (s *service) Initiate(ctx context.Context, userID uuid.UUID, req InitiateRequest) (*models.Transaction, error) {
	planID, err := uuid.Parse(strings.TrimSpace(req.PlanID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan_id")
	}
	txnType, err := enums.ParseTransactionType(strings.TrimSpace(req.Type))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
	}
	gateway, err := enums.ParsePaymentGateway(strings.TrimSpace(req.Gateway))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gateway")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = user.Country
	}

	plan, quote, err := s.plans.Quote(ctx, planID, req.DurationDays, country)
	if err != nil {
		return nil, err
	}

	amount := quote.Price
	duration := quote.DurationDays
	if txnType == enums.TransactionTypeActivation {
		if !plan.RequiresActivation {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan does not require activation")
		}
		if quote.ActivationFee == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no activation fee configured for this plan")
		}
		amount = *quote.ActivationFee
		duration = s.activationDays
	}

	sub, err := s.subs.Subscribe(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if txnType == enums.TransactionTypeActivation && sub.Status != enums.SubscriptionStatusPendingActivation {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "activation is not due for a %s subscription", sub.Status)
	}

	metadata, err := json.Marshal(transactionMetadata{PlanName: plan.Name, Country: quote.Country, Symbol: quote.Symbol})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode metadata")
	}
	subID := sub.ID
	txn := &models.Transaction{
		UserID:         userID,
		PlanID:         planID,
		SubscriptionID: &subID,
		Amount:         amount,
		Currency:       quote.Currency,
		Gateway:        gateway,
		Type:           txnType,
		Status:         enums.TransactionStatusPending,
		Reference:      newReference(),
		DurationDays:   duration,
		Metadata:       datatypes.JSON(metadata),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create transaction")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.RoleUser)},
			Data: payloads.TransactionCreatedEvent{
				TransactionID: txn.ID,
				UserID:        userID,
				PlanID:        planID,
				PlanName:      plan.Name,
				UserEmail:     user.Email,
				Amount:        txn.Amount.StringFixed(2),
				Currency:      txn.Currency,
				Gateway:       gateway,
				Type:          txnType,
				Reference:     txn.Reference,
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "initiate transaction")
	}
	return txn, nil
}

// Complete is the user-side confirmation used with the simulated gateway.
func (s *service) Complete(ctx context.Context, userID, id uuid.UUID) (*CompletionResult, error) {
	txn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return s.complete(ctx, txn, enums.RoleUser)
}

// Approve is the admin confirmation of a manually verified payment.
func (s *service) Approve(ctx context.Context, id uuid.UUID) (*CompletionResult, error) {
	txn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, txn, enums.RoleAdmin)
}

func (s *service) complete(ctx context.Context, txn *models.Transaction, role enums.Role) (*CompletionResult, error) {
	now := s.now()
	user, err := s.users.FindByID(ctx, txn.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	meta := decodeMetadata(txn.Metadata)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).Transition(ctx, txn.ID, enums.TransactionStatusPending, enums.TransactionStatusCompleted, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete transaction")
		}
		if !moved {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot complete a %s transaction", txn.Status)
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionCompleted,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Data: payloads.TransactionCompletedEvent{
				TransactionID: txn.ID,
				UserID:        txn.UserID,
				PlanID:        txn.PlanID,
				PlanName:      meta.PlanName,
				Type:          txn.Type,
				Amount:        txn.Amount.StringFixed(2),
				Currency:      txn.Currency,
				Reference:     txn.Reference,
			},
		}); err != nil {
			return err
		}
		template := enums.EmailTemplatePaymentReceived
		if role == enums.RoleAdmin {
			template = enums.EmailTemplatePaymentApproved
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationEmailRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   txn.UserID,
			Data: payloads.NotificationEmailRequestedEvent{
				Template: template,
				To:       user.Email,
				Name:     user.FullName,
				Data: map[string]string{
					"plan_name": meta.PlanName,
					"amount":    meta.Symbol + txn.Amount.StringFixed(2),
					"reference": txn.Reference,
				},
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "complete transaction")
	}
	txn.Status = enums.TransactionStatusCompleted
	txn.CompletedAt = &now

	result := &CompletionResult{Transaction: txn}
	sub, err := s.applyEntitlement(ctx, txn)
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"transaction_id": txn.ID.String(),
			"plan_id":        txn.PlanID.String(),
		})
		s.logg.Error(logCtx, "transactions.subscription_update_failed", err)
		result.Warning = "payment recorded but subscription update failed; an admin will review it"
		return result, nil
	}
	result.Subscription = sub
	result.SubscriptionUpdated = true
	return result, nil
}

func (s *service) applyEntitlement(ctx context.Context, txn *models.Transaction) (*models.UserSubscription, error) {
	if txn.Type == enums.TransactionTypeActivation {
		return s.subs.ApplyActivationPayment(ctx, txn.UserID, txn.PlanID)
	}
	return s.subs.ApplySubscriptionPayment(ctx, txn.UserID, txn.PlanID, txn.DurationDays)
}

func (s *service) Fail(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.transition(ctx, id, enums.TransactionStatusPending, enums.TransactionStatusFailed)
}

func (s *service) Refund(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.transition(ctx, id, enums.TransactionStatusCompleted, enums.TransactionStatusRefunded)
}

func (s *service) transition(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus) (*models.Transaction, error) {
	txn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	moved, err := s.repo.Transition(ctx, id, from, to, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update transaction")
	}
	if !moved {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move a %s transaction to %s", txn.Status, to)
	}
	return s.load(ctx, id)
}

// Get hides other users' transactions behind NOT_FOUND.
func (s *service) Get(ctx context.Context, viewerID uuid.UUID, isAdmin bool, id uuid.UUID) (*models.Transaction, error) {
	txn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && txn.UserID != viewerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return txn, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error) {
	return s.list(ctx, &userID, params)
}

func (s *service) ListAll(ctx context.Context, params ListParams) (*ListResult, error) {
	return s.list(ctx, nil, params)
}

func (s *service) CountPending(ctx context.Context) (int64, error) {
	return s.repo.CountByStatus(ctx, enums.TransactionStatusPending)
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, params ListParams) (*ListResult, error) {
	query := ListQuery{UserID: userID, Limit: params.Limit}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParseTransactionStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		query.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	page, next := pagination.Trim(rows, params.Limit, func(t models.Transaction) pagination.Cursor {
		return pagination.Cursor{At: t.CreatedAt, ID: t.ID}
	})
	return &ListResult{Items: page, Cursor: next}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
	}
	return txn, nil
}

func newReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "OV-" + strings.ToUpper(raw[:12])
}

func decodeMetadata(raw datatypes.JSON) transactionMetadata {
	var meta transactionMetadata
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &meta)
	}
	return meta
}

func asServiceError(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
