package plans

import (
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

// CreatePlanRequest is the admin payload for a new plan.
type CreatePlanRequest struct {
	Name               string   `json:"name" validate:"required,max=80"`
	Slug               string   `json:"slug" validate:"required,max=64"`
	Description        string   `json:"description" validate:"max=2000"`
	RequiresActivation bool     `json:"requires_activation"`
	Benefits           []string `json:"benefits"`
	DurationDays       int      `json:"duration_days" validate:"omitempty,min=1,max=3650"`
	SortOrder          int      `json:"sort_order"`
	IsActive           *bool    `json:"is_active,omitempty"`
}

// UpdatePlanRequest patches a plan. Nil fields are left untouched.
type UpdatePlanRequest struct {
	Name               *string   `json:"name,omitempty" validate:"omitempty,max=80"`
	Description        *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	RequiresActivation *bool     `json:"requires_activation,omitempty"`
	Benefits           *[]string `json:"benefits,omitempty"`
	DurationDays       *int      `json:"duration_days,omitempty" validate:"omitempty,min=1,max=3650"`
	SortOrder          *int      `json:"sort_order,omitempty"`
	IsActive           *bool     `json:"is_active,omitempty"`
}

// UpsertPriceRequest sets the price of a plan for one (country, duration).
type UpsertPriceRequest struct {
	Country       string           `json:"country" validate:"required,max=64"`
	DurationDays  int              `json:"duration_days" validate:"required,min=1"`
	Price         decimal.Decimal  `json:"price"`
	ActivationFee *decimal.Decimal `json:"activation_fee,omitempty"`
	Currency      string           `json:"currency" validate:"omitempty,len=3"`
}

// PriceQuote is the resolved price of a plan for a viewer.
type PriceQuote struct {
	PlanID        uuid.UUID        `json:"plan_id"`
	PriceID       uuid.UUID        `json:"price_id"`
	Country       string           `json:"country"`
	DurationDays  int              `json:"duration_days"`
	Price         decimal.Decimal  `json:"price"`
	ActivationFee *decimal.Decimal `json:"activation_fee,omitempty"`
	Currency      string           `json:"currency"`
	Symbol        string           `json:"symbol"`
}

// PlanView is a plan with the price quoted for the viewer, when one exists.
type PlanView struct {
	models.Plan
	Quote *PriceQuote `json:"quote,omitempty"`
}

func (r CreatePlanRequest) toModel() *models.Plan {
	duration := r.DurationDays
	if duration <= 0 {
		duration = 30
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.Plan{
		Name:               strings.TrimSpace(r.Name),
		Slug:               enums.NormalizePlanSlug(r.Slug),
		Description:        strings.TrimSpace(r.Description),
		RequiresActivation: r.RequiresActivation,
		Benefits:           pq.StringArray(cleanBenefits(r.Benefits)),
		DurationDays:       duration,
		SortOrder:          r.SortOrder,
		IsActive:           active,
	}
}

func (r UpdatePlanRequest) apply(plan *models.Plan) {
	if r.Name != nil {
		plan.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		plan.Description = strings.TrimSpace(*r.Description)
	}
	if r.RequiresActivation != nil {
		plan.RequiresActivation = *r.RequiresActivation
	}
	if r.Benefits != nil {
		plan.Benefits = pq.StringArray(cleanBenefits(*r.Benefits))
	}
	if r.DurationDays != nil {
		plan.DurationDays = *r.DurationDays
	}
	if r.SortOrder != nil {
		plan.SortOrder = *r.SortOrder
	}
	if r.IsActive != nil {
		plan.IsActive = *r.IsActive
	}
}

func quoteFor(price models.PlanPrice, userCountry string) *PriceQuote {
	return &PriceQuote{
		PlanID:        price.PlanID,
		PriceID:       price.ID,
		Country:       price.Country,
		DurationDays:  price.DurationDays,
		Price:         price.Price,
		ActivationFee: price.ActivationFee,
		Currency:      CurrencyCode(price, userCountry),
		Symbol:        CurrencySymbol(price, userCountry),
	}
}

func cleanBenefits(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
