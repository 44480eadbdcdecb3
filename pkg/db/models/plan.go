package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is a subscription tier. Its slug doubles as the plan_type of gated
// predictions.
type Plan struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string         `gorm:"column:name;not null" json:"name"`
	Slug               string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Description        string         `gorm:"column:description;not null;default:''" json:"description"`
	RequiresActivation bool           `gorm:"column:requires_activation;not null;default:false" json:"requires_activation"`
	Benefits           pq.StringArray `gorm:"column:benefits;type:text[]" json:"benefits"`
	DurationDays       int            `gorm:"column:duration_days;not null;default:30" json:"duration_days"`
	SortOrder          int            `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	IsActive           bool           `gorm:"column:is_active;not null" json:"is_active"`
	Prices             []PlanPrice    `gorm:"foreignKey:PlanID" json:"prices,omitempty"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *Plan) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PlanPrice is the price of a plan for one (country, duration) pair.
type PlanPrice struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID        uuid.UUID        `gorm:"column:plan_id;type:uuid;not null;index" json:"plan_id"`
	Country       string           `gorm:"column:country;not null" json:"country"`
	DurationDays  int              `gorm:"column:duration_days;not null" json:"duration_days"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	ActivationFee *decimal.Decimal `gorm:"column:activation_fee;type:numeric(12,2)" json:"activation_fee,omitempty"`
	Currency      string           `gorm:"column:currency;not null;default:''" json:"currency"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *PlanPrice) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
