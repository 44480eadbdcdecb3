package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeSubscription NotificationType = "subscription"
	NotificationTypePayment      NotificationType = "payment"
	NotificationTypePrediction   NotificationType = "prediction"
	NotificationTypeMessage      NotificationType = "message"
	NotificationTypeSystem       NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeSubscription,
	NotificationTypePayment,
	NotificationTypePrediction,
	NotificationTypeMessage,
	NotificationTypeSystem,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
