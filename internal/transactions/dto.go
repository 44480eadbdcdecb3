package transactions

import (
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
)

// InitiateRequest opens a pending payment for a plan.
type InitiateRequest struct {
	PlanID       string `json:"plan_id" validate:"required,uuid"`
	Type         string `json:"type" validate:"required,oneof=subscription activation"`
	DurationDays int    `json:"duration_days" validate:"omitempty,min=1"`
	Country      string `json:"country" validate:"omitempty,max=64"`
	Gateway      string `json:"gateway" validate:"required"`
}

// ListParams filters transaction listings.
type ListParams struct {
	Status string
	Limit  int
	Cursor string
}

// ListResult wraps a page of transactions and the cursor for the next page.
type ListResult struct {
	Items  []models.Transaction `json:"items"`
	Cursor string               `json:"cursor"`
}

// CompletionResult is returned by Complete and Approve. The entitlement
// update runs after the payment commits, so a failure there is reported
// through SubscriptionUpdated and Warning rather than an error.
type CompletionResult struct {
	Transaction         *models.Transaction      `json:"transaction"`
	Subscription        *models.UserSubscription `json:"subscription,omitempty"`
	SubscriptionUpdated bool                     `json:"subscription_updated"`
	Warning             string                   `json:"warning,omitempty"`
}

type transactionMetadata struct {
	PlanName string `json:"plan_name"`
	Country  string `json:"country"`
	Symbol   string `json:"symbol"`
}
