package subscriptions

import (
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
)

// SubscribeRequest starts a subscription to a plan.
type SubscribeRequest struct {
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

// ListParams filters the admin listing.
type ListParams struct {
	Status string
	PlanID string
	Limit  int
	Cursor string
}

// ListResult wraps a page of subscriptions and the cursor for the next page.
type ListResult struct {
	Items  []models.UserSubscription `json:"items"`
	Cursor string                    `json:"cursor"`
}

// AccessResult answers an entitlement check for one plan.
type AccessResult struct {
	PlanSlug  string `json:"plan_slug"`
	HasAccess bool   `json:"has_access"`
}
