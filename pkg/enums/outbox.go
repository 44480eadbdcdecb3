package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateTransaction  OutboxAggregateType = "transaction"
	AggregateSubscription OutboxAggregateType = "subscription"
	AggregateNotification OutboxAggregateType = "notification"
	AggregatePrediction   OutboxAggregateType = "prediction"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTransaction,
	AggregateSubscription,
	AggregateNotification,
	AggregatePrediction,
}

func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventTransactionCreated         OutboxEventType = "transaction_created"
	EventTransactionCompleted       OutboxEventType = "transaction_completed"
	EventSubscriptionActivated      OutboxEventType = "subscription_activated"
	EventSubscriptionExpired        OutboxEventType = "subscription_expired"
	EventNotificationEmailRequested OutboxEventType = "notification_email_requested"
	EventPredictionsImported        OutboxEventType = "predictions_imported"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTransactionCreated,
	EventTransactionCompleted,
	EventSubscriptionActivated,
	EventSubscriptionExpired,
	EventNotificationEmailRequested,
	EventPredictionsImported,
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
