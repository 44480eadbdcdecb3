package enums

import "fmt"

// SubscriptionStatus is the entitlement state of a user_subscriptions row.
type SubscriptionStatus string

const (
	SubscriptionStatusInactive          SubscriptionStatus = "inactive"
	SubscriptionStatusPending           SubscriptionStatus = "pending"
	SubscriptionStatusPendingActivation SubscriptionStatus = "pending_activation"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusExpired           SubscriptionStatus = "expired"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusInactive,
	SubscriptionStatusPending,
	SubscriptionStatusPendingActivation,
	SubscriptionStatusActive,
	SubscriptionStatusExpired,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubscriptionStatus.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}

// GrantsAccess reports whether the status unlocks gated content.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionStatusActive
}
