package payloads

import (
	"time"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/google/uuid"
)

// TransactionCreatedEvent is emitted when a user opens a pending payment.
type TransactionCreatedEvent struct {
	TransactionID uuid.UUID             `json:"transaction_id"`
	UserID        uuid.UUID             `json:"user_id"`
	PlanID        uuid.UUID             `json:"plan_id"`
	PlanName      string                `json:"plan_name"`
	UserEmail     string                `json:"user_email"`
	Amount        string                `json:"amount"`
	Currency      string                `json:"currency"`
	Gateway       enums.PaymentGateway  `json:"gateway"`
	Type          enums.TransactionType `json:"type"`
	Reference     string                `json:"reference"`
}

// TransactionCompletedEvent is written with the status change; the
// entitlement update that follows commits separately.
type TransactionCompletedEvent struct {
	TransactionID uuid.UUID             `json:"transaction_id"`
	UserID        uuid.UUID             `json:"user_id"`
	PlanID        uuid.UUID             `json:"plan_id"`
	PlanName      string                `json:"plan_name"`
	Type          enums.TransactionType `json:"type"`
	Amount        string                `json:"amount"`
	Currency      string                `json:"currency"`
	Reference     string                `json:"reference"`
}

type SubscriptionActivatedEvent struct {
	SubscriptionID uuid.UUID                `json:"subscription_id"`
	UserID         uuid.UUID                `json:"user_id"`
	PlanID         uuid.UUID                `json:"plan_id"`
	Status         enums.SubscriptionStatus `json:"status"`
	ExpiryDate     *time.Time               `json:"expiry_date,omitempty"`
}

type SubscriptionExpiredEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	PlanID         uuid.UUID `json:"plan_id"`
	ExpiredAt      time.Time `json:"expired_at"`
}

// NotificationEmailRequestedEvent asks the worker to render and send one email.
type NotificationEmailRequestedEvent struct {
	Template enums.EmailTemplate `json:"template"`
	To       string              `json:"to"`
	Name     string              `json:"name,omitempty"`
	Subject  string              `json:"subject,omitempty"`
	Data     map[string]string   `json:"data,omitempty"`
}

type PredictionsImportedEvent struct {
	PlanType string    `json:"plan_type"`
	Date     string    `json:"date"`
	Count    int       `json:"count"`
	RunAt    time.Time `json:"run_at"`
}
