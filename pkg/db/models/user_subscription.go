package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

// UserSubscription is the entitlement row for a (user, plan) pair.
type UserSubscription struct {
	ID                  uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_user_plan" json:"user_id"`
	PlanID              uuid.UUID                `gorm:"column:plan_id;type:uuid;not null;uniqueIndex:ux_user_plan" json:"plan_id"`
	Status              enums.SubscriptionStatus `gorm:"column:status;not null;default:'inactive'" json:"status"`
	SubscriptionFeePaid bool                     `gorm:"column:subscription_fee_paid;not null;default:false" json:"subscription_fee_paid"`
	ActivationFeePaid   bool                     `gorm:"column:activation_fee_paid;not null;default:false" json:"activation_fee_paid"`
	StartDate           *time.Time               `gorm:"column:start_date" json:"start_date,omitempty"`
	ExpiryDate          *time.Time               `gorm:"column:expiry_date" json:"expiry_date,omitempty"`
	Plan                *Plan                    `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (s *UserSubscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Live reports whether the row grants access at the given instant.
func (s UserSubscription) Live(now time.Time) bool {
	if !s.Status.GrantsAccess() {
		return false
	}
	return s.ExpiryDate == nil || s.ExpiryDate.After(now)
}
