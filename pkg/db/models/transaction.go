package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

// Transaction is a payment attempt for a subscription or activation fee.
type Transaction struct {
	ID             uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	PlanID         uuid.UUID               `gorm:"column:plan_id;type:uuid;not null" json:"plan_id"`
	SubscriptionID *uuid.UUID              `gorm:"column:subscription_id;type:uuid" json:"subscription_id,omitempty"`
	Amount         decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency       string                  `gorm:"column:currency;not null" json:"currency"`
	Gateway        enums.PaymentGateway    `gorm:"column:gateway;not null" json:"gateway"`
	Type           enums.TransactionType   `gorm:"column:type;not null" json:"type"`
	Status         enums.TransactionStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	Reference      string                  `gorm:"column:reference;not null;uniqueIndex" json:"reference"`
	DurationDays   int                     `gorm:"column:duration_days;not null" json:"duration_days"`
	Metadata       datatypes.JSON          `gorm:"column:metadata" json:"metadata"`
	CompletedAt    *time.Time              `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
