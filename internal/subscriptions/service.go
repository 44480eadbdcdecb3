package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

const day = 24 * time.Hour

// Service owns the entitlement lifecycle of (user, plan) pairs.
type Service interface {
	Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error)
	ApplySubscriptionPayment(ctx context.Context, userID, planID uuid.UUID, durationDays int) (*models.UserSubscription, error)
	ApplyActivationPayment(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error)
	ListAll(ctx context.Context, params ListParams) (*ListResult, error)
	HasAccess(ctx context.Context, userID uuid.UUID, planSlug string) (bool, error)
	SubscriberIDs(ctx context.Context, planSlug string) ([]uuid.UUID, error)
	CountActive(ctx context.Context) (int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type planLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams bundles subscription service dependencies.
type ServiceParams struct {
	TxRunner               txRunner
	Repo                   Repository
	Plans                  planLookup
	Users                  userLookup
	Outbox                 outbox.Emitter
	Logger                 *logger.Logger
	ActivationDurationDays int
	Now                    func() time.Time
}

type service struct {
	tx             txRunner
	repo           Repository
	plans          planLookup
	users          userLookup
	outbox         outbox.Emitter
	logg           *logger.Logger
	activationDays int
	now            func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plan lookup required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
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
		users:          params.Users,
		outbox:         params.Outbox,
		logg:           params.Logger,
		activationDays: days,
		now:            now,
	}, nil
}

// Subscribe records intent to subscribe. An existing row is returned as is
// unless it is inactive or expired, in which case it goes back to pending.
func (s *service) Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is not available")
	}

	sub, err := s.repo.FindByUserPlan(ctx, userID, planID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = &models.UserSubscription{UserID: userID, PlanID: planID, Status: enums.SubscriptionStatusPending}
		if err := s.repo.Create(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subscription")
		}
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	case sub.Status == enums.SubscriptionStatusInactive || sub.Status == enums.SubscriptionStatusExpired:
		sub.Status = enums.SubscriptionStatusPending
		if err := s.repo.Save(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update subscription")
		}
	}
	sub.Plan = plan
	return sub, nil
}

// ApplySubscriptionPayment moves the pair forward after its subscription fee
// is paid: plans needing activation wait in pending_activation with no dates,
// everything else is active for durationDays from now. The activation fee is
// one-time, so a row that already paid it renews straight to active.
func (s *service) ApplySubscriptionPayment(ctx context.Context, userID, planID uuid.UUID, durationDays int) (*models.UserSubscription, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if durationDays <= 0 {
		durationDays = plan.DurationDays
	}

	var result *models.UserSubscription
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, created, err := s.findOrNew(ctx, repo, userID, planID)
		if err != nil {
			return err
		}

		now := s.now()
		sub.SubscriptionFeePaid = true
		if plan.RequiresActivation && !sub.ActivationFeePaid {
			sub.Status = enums.SubscriptionStatusPendingActivation
			sub.StartDate = nil
			sub.ExpiryDate = nil
		} else {
			activate(sub, now, durationDays)
		}

		if err := persist(ctx, repo, sub, created); err != nil {
			return err
		}
		result = sub
		if sub.Status == enums.SubscriptionStatusActive {
			return s.emitActivated(ctx, tx, sub, plan)
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "apply subscription payment")
	}
	result.Plan = plan
	return result, nil
}

// ApplyActivationPayment is only valid from pending_activation.
func (s *service) ApplyActivationPayment(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	var result *models.UserSubscription
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindByUserPlan(ctx, userID, planID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
		}
		if sub.Status != enums.SubscriptionStatusPendingActivation {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot activate a %s subscription", sub.Status)
		}

		sub.ActivationFeePaid = true
		activate(sub, s.now(), s.activationDays)
		if err := repo.Save(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save subscription")
		}
		result = sub
		return s.emitActivated(ctx, tx, sub, plan)
	})
	if err != nil {
		return nil, asServiceError(err, "apply activation payment")
	}
	result.Plan = plan
	return result, nil
}

// Deactivate is an admin override; transactions are left untouched.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot deactivate a %s subscription", sub.Status)
	}
	sub.Status = enums.SubscriptionStatusInactive
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate subscription")
	}
	return sub, nil
}

// Reactivate restores an inactive row and re-stamps both paid flags. Dates
// are left as they were.
func (s *service) Reactivate(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != enums.SubscriptionStatusInactive {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot reactivate a %s subscription", sub.Status)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sub.Status = enums.SubscriptionStatusActive
		sub.SubscriptionFeePaid = true
		sub.ActivationFeePaid = true
		if err := s.repo.WithTx(tx).Save(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reactivate subscription")
		}
		return s.emitActivated(ctx, tx, sub, sub.Plan)
	})
	if err != nil {
		return nil, asServiceError(err, "reactivate subscription")
	}
	return sub, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscriptions")
	}
	return rows, nil
}

func (s *service) ListAll(ctx context.Context, params ListParams) (*ListResult, error) {
	query := ListQuery{Limit: params.Limit}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParseSubscriptionStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		query.Status = &status
	}
	if raw := strings.TrimSpace(params.PlanID); raw != "" {
		planID, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan_id")
		}
		query.PlanID = &planID
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscriptions")
	}
	page, next := pagination.Trim(rows, params.Limit, func(sub models.UserSubscription) pagination.Cursor {
		return pagination.Cursor{At: sub.CreatedAt, ID: sub.ID}
	})
	return &ListResult{Items: page, Cursor: next}, nil
}

// HasAccess is true for an active row whose expiry is unset or in the
// future. Rows the sweep has not reached yet are still judged by their date.
func (s *service) HasAccess(ctx context.Context, userID uuid.UUID, planSlug string) (bool, error) {
	slug := enums.NormalizePlanSlug(planSlug)
	if slug == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "plan slug required")
	}
	ok, err := s.repo.HasLive(ctx, userID, slug, s.now())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check access")
	}
	return ok, nil
}

func (s *service) SubscriberIDs(ctx context.Context, planSlug string) ([]uuid.UUID, error) {
	ids, err := s.repo.LiveUserIDs(ctx, enums.NormalizePlanSlug(planSlug), s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscribers")
	}
	return ids, nil
}

func (s *service) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountByStatus(ctx, enums.SubscriptionStatusActive)
}

// ExpireDue flips active rows whose expiry has passed to expired and queues
// the expiry notice. Each row commits on its own; failures are aggregated.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListDueForExpiry(ctx, now, 0)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list due subscriptions")
	}

	var (
		expired int
		errs    error
	)
	for i := range due {
		sub := due[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			sub.Status = enums.SubscriptionStatusExpired
			if err := s.repo.WithTx(tx).Save(ctx, &sub); err != nil {
				return err
			}
			return s.emitExpired(ctx, tx, &sub, now)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire subscription %s: %w", sub.ID, err))
			continue
		}
		expired++
	}
	return expired, errs
}

func (s *service) emitActivated(ctx context.Context, tx *gorm.DB, sub *models.UserSubscription, plan *models.Plan) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSubscriptionActivated,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   sub.ID,
		Data: payloads.SubscriptionActivatedEvent{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			PlanID:         sub.PlanID,
			Status:         sub.Status,
			ExpiryDate:     sub.ExpiryDate,
		},
	}); err != nil {
		return err
	}

	data := map[string]string{}
	if plan != nil {
		data["plan_name"] = plan.Name
	}
	if sub.ExpiryDate != nil {
		data["expiry_date"] = sub.ExpiryDate.Format("2 Jan 2006")
	}
	return s.emitEmail(ctx, tx, sub.UserID, enums.EmailTemplateSubscriptionActivated, data)
}

func (s *service) emitExpired(ctx context.Context, tx *gorm.DB, sub *models.UserSubscription, now time.Time) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSubscriptionExpired,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   sub.ID,
		Data: payloads.SubscriptionExpiredEvent{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			PlanID:         sub.PlanID,
			ExpiredAt:      now,
		},
	}); err != nil {
		return err
	}
	data := map[string]string{}
	if sub.Plan != nil {
		data["plan_name"] = sub.Plan.Name
	}
	return s.emitEmail(ctx, tx, sub.UserID, enums.EmailTemplateSubscriptionExpired, data)
}

// emitEmail queues a templated email for the user. A missing user is logged
// and skipped so the state change still commits.
func (s *service) emitEmail(ctx context.Context, tx *gorm.DB, userID uuid.UUID, template enums.EmailTemplate, data map[string]string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "subscriptions.email_skipped")
		}
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationEmailRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   userID,
		Data: payloads.NotificationEmailRequestedEvent{
			Template: template,
			To:       user.Email,
			Name:     user.FullName,
			Data:     data,
		},
	})
}

func (s *service) findOrNew(ctx context.Context, repo Repository, userID, planID uuid.UUID) (*models.UserSubscription, bool, error) {
	sub, err := repo.FindByUserPlan(ctx, userID, planID)
	if err == nil {
		return sub, false, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserSubscription{UserID: userID, PlanID: planID, Status: enums.SubscriptionStatusPending}, true, nil
	}
	return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	return sub, nil
}

func (s *service) loadPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
	}
	return plan, nil
}

func activate(sub *models.UserSubscription, now time.Time, durationDays int) {
	start := now
	expiry := now.Add(time.Duration(durationDays) * day)
	sub.Status = enums.SubscriptionStatusActive
	sub.StartDate = &start
	sub.ExpiryDate = &expiry
}

func persist(ctx context.Context, repo Repository, sub *models.UserSubscription, created bool) error {
	var err error
	if created {
		err = repo.Create(ctx, sub)
	} else {
		err = repo.Save(ctx, sub)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save subscription")
	}
	return nil
}

func asServiceError(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
