package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/payloads"
)

const domainConsumerName = "domain-notifications"

type inbox interface {
	Create(ctx context.Context, input CreateInput) (*models.Notification, error)
	NotifyAdmins(ctx context.Context, input CreateInput) (int, error)
}

// Alerter posts operational alerts to the admin channel.
type Alerter interface {
	Alert(ctx context.Context, title string, fields [][2]string) error
}

// EventConsumer turns payment and subscription events into in-app
// notifications and admin alerts.
type EventConsumer struct {
	*receiver
	inbox   inbox
	alerter Alerter
}

// NewEventConsumer builds the domain event consumer. alerter may be nil.
func NewEventConsumer(in inbox, alerter Alerter, subscription *pubsub.Subscriber, tracker processedTracker, logg *logger.Logger) (*EventConsumer, error) {
	if in == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	c := &EventConsumer{inbox: in, alerter: alerter}
	r, err := newReceiver(domainConsumerName, subscription, tracker, logg, c.handle)
	if err != nil {
		return nil, err
	}
	c.receiver = r
	return c, nil
}

func (c *EventConsumer) handle(ctx context.Context, logCtx context.Context, eventType string, data json.RawMessage) error {
	switch enums.OutboxEventType(eventType) {
	case enums.EventTransactionCreated:
		var p payloads.TransactionCreatedEvent
		if err := c.decode(logCtx, data, &p); err != nil {
			return err
		}
		return c.onTransactionCreated(ctx, logCtx, p)
	case enums.EventTransactionCompleted:
		var p payloads.TransactionCompletedEvent
		if err := c.decode(logCtx, data, &p); err != nil {
			return err
		}
		_, err := c.inbox.Create(ctx, CreateInput{
			UserID:   p.UserID,
			Type:     enums.NotificationTypePayment,
			Title:    "Payment confirmed",
			Message:  fmt.Sprintf("Your %s %s payment for %s was confirmed (ref %s).", p.Currency, p.Amount, p.PlanName, p.Reference),
			Link:     "/account/transactions",
			Metadata: map[string]any{"transaction_id": p.TransactionID.String()},
		})
		return err
	case enums.EventSubscriptionActivated:
		var p payloads.SubscriptionActivatedEvent
		if err := c.decode(logCtx, data, &p); err != nil {
			return err
		}
		message := "Your subscription is now active."
		if p.ExpiryDate != nil {
			message = fmt.Sprintf("Your subscription is active until %s.", p.ExpiryDate.Format("2 Jan 2006"))
		}
		_, err := c.inbox.Create(ctx, CreateInput{
			UserID:   p.UserID,
			Type:     enums.NotificationTypeSubscription,
			Title:    "Subscription active",
			Message:  message,
			Link:     "/predictions",
			Metadata: map[string]any{"subscription_id": p.SubscriptionID.String()},
		})
		return err
	case enums.EventSubscriptionExpired:
		var p payloads.SubscriptionExpiredEvent
		if err := c.decode(logCtx, data, &p); err != nil {
			return err
		}
		_, err := c.inbox.Create(ctx, CreateInput{
			UserID:   p.UserID,
			Type:     enums.NotificationTypeSubscription,
			Title:    "Subscription expired",
			Message:  "Your subscription has expired. Renew to keep receiving predictions.",
			Link:     "/plans",
			Metadata: map[string]any{"subscription_id": p.SubscriptionID.String()},
		})
		return err
	default:
		c.logg.Info(logCtx, "event not handled")
		return errSkip
	}
}

func (c *EventConsumer) onTransactionCreated(ctx context.Context, logCtx context.Context, p payloads.TransactionCreatedEvent) error {
	if c.alerter != nil {
		err := c.alerter.Alert(ctx, "New pending payment", [][2]string{
			{"Reference", p.Reference},
			{"User", p.UserEmail},
			{"Plan", p.PlanName},
			{"Type", string(p.Type)},
			{"Amount", p.Amount + " " + p.Currency},
			{"Gateway", string(p.Gateway)},
		})
		if err != nil {
			c.logg.Error(logCtx, "telegram alert failed", err)
		}
	}
	_, err := c.inbox.NotifyAdmins(ctx, CreateInput{
		Type:     enums.NotificationTypePayment,
		Title:    "New pending payment",
		Message:  fmt.Sprintf("%s started a %s payment of %s %s for %s (ref %s).", p.UserEmail, p.Type, p.Amount, p.Currency, p.PlanName, p.Reference),
		Link:     "/admin/transactions/" + p.TransactionID.String(),
		Metadata: map[string]any{"transaction_id": p.TransactionID.String()},
	})
	return err
}

func (c *EventConsumer) decode(logCtx context.Context, data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return errSkip
	}
	return nil
}
