package plans

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

// Service exposes the plan catalog and pricing.
type Service interface {
	List(ctx context.Context, params ListParams) ([]PlanView, error)
	Get(ctx context.Context, ref string, country string) (*PlanView, error)
	Create(ctx context.Context, req CreatePlanRequest) (*models.Plan, error)
	Update(ctx context.Context, id uuid.UUID, req UpdatePlanRequest) (*models.Plan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListPrices(ctx context.Context, planID uuid.UUID) ([]models.PlanPrice, error)
	UpsertPrice(ctx context.Context, planID uuid.UUID, req UpsertPriceRequest) (*models.PlanPrice, error)
	DeletePrice(ctx context.Context, planID, priceID uuid.UUID) error
	Quote(ctx context.Context, planID uuid.UUID, durationDays int, country string) (*models.Plan, *PriceQuote, error)
}

// ListParams filters the catalog and selects the viewer's market.
type ListParams struct {
	IncludeInactive bool
	Country         string
}

type service struct {
	repo        Repository
	homeCountry string
}

// ServiceParams bundles plan service dependencies.
type ServiceParams struct {
	Repo        Repository
	HomeCountry string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plans repository required")
	}
	home := strings.TrimSpace(params.HomeCountry)
	if home == "" {
		home = "Nigeria"
	}
	return &service{repo: params.Repo, homeCountry: home}, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]PlanView, error) {
	rows, err := s.repo.List(ctx, !params.IncludeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list plans")
	}
	views := make([]PlanView, 0, len(rows))
	for _, plan := range rows {
		views = append(views, s.view(plan, params.Country))
	}
	return views, nil
}

// Get accepts either a plan id or a slug.
func (s *service) Get(ctx context.Context, ref string, country string) (*PlanView, error) {
	plan, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	view := s.view(*plan, country)
	return &view, nil
}

func (s *service) Create(ctx context.Context, req CreatePlanRequest) (*models.Plan, error) {
	plan := req.toModel()
	if plan.Name == "" || plan.Slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and slug are required")
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create plan")
	}
	return plan, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdatePlanRequest) (*models.Plan, error) {
	plan, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(plan)
	if plan.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if plan.DurationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_days must be positive")
	}
	if err := s.repo.Save(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update plan")
	}
	return plan, nil
}

// Delete removes a plan with no subscribers. Plans with history are
// deactivated through Update instead.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	count, err := s.repo.CountSubscriptions(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count subscriptions")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "plan has subscriptions; deactivate it instead")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete plan")
	}
	return nil
}

func (s *service) ListPrices(ctx context.Context, planID uuid.UUID) ([]models.PlanPrice, error) {
	if _, err := s.load(ctx, planID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPrices(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list prices")
	}
	return rows, nil
}

// UpsertPrice replaces the row for the same (country, duration) or adds one.
func (s *service) UpsertPrice(ctx context.Context, planID uuid.UUID, req UpsertPriceRequest) (*models.PlanPrice, error) {
	country := strings.TrimSpace(req.Country)
	if country == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country is required")
	}
	if req.DurationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_days must be positive")
	}
	if req.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if req.ActivationFee != nil && req.ActivationFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activation_fee cannot be negative")
	}
	if _, err := s.load(ctx, planID); err != nil {
		return nil, err
	}

	price, err := s.repo.FindPrice(ctx, planID, country, req.DurationDays)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find price")
	}
	if price == nil {
		price = &models.PlanPrice{PlanID: planID, DurationDays: req.DurationDays}
	}
	price.Country = country
	price.Price = req.Price
	price.ActivationFee = req.ActivationFee
	price.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	if err := s.repo.SavePrice(ctx, price); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "price already exists for country and duration")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save price")
	}
	return price, nil
}

func (s *service) DeletePrice(ctx context.Context, planID, priceID uuid.UUID) error {
	deleted, err := s.repo.DeletePrice(ctx, planID, priceID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete price")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "price not found")
	}
	return nil
}

// Quote resolves what a viewer in country pays for planID over durationDays.
// A zero duration uses the plan's default.
func (s *service) Quote(ctx context.Context, planID uuid.UUID, durationDays int, country string) (*models.Plan, *PriceQuote, error) {
	plan, err := s.load(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if durationDays <= 0 {
		durationDays = plan.DurationDays
	}
	price, ok := ResolvePrice(plan.Prices, durationDays, country, s.homeCountry)
	if !ok {
		return nil, nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "no price for %d days on plan %s", durationDays, plan.Slug)
	}
	return plan, quoteFor(price, country), nil
}

func (s *service) view(plan models.Plan, country string) PlanView {
	view := PlanView{Plan: plan}
	if price, ok := ResolvePrice(plan.Prices, plan.DurationDays, country, s.homeCountry); ok {
		view.Quote = quoteFor(price, country)
	}
	return view
}

func (s *service) lookup(ctx context.Context, ref string) (*models.Plan, error) {
	if id, err := uuid.Parse(strings.TrimSpace(ref)); err == nil {
		return s.load(ctx, id)
	}
	plan, err := s.repo.FindBySlug(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
	}
	return plan, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
	}
	return plan, nil
}
