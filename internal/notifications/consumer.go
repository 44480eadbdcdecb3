package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
)

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type processResult struct {
	ack  bool
	nack bool
}

var (
	ackResult  = processResult{ack: true}
	nackResult = processResult{nack: true}
)

// handlerFunc handles a decoded envelope. Returning an error nacks the
// message and clears its processed marker so the redelivery runs again.
type handlerFunc func(ctx context.Context, logCtx context.Context, eventType string, data json.RawMessage) error

// errSkip acks a message without treating it as a failure.
var errSkip = errors.New("skip")

// receiver is the Pub/Sub loop shared by the email and domain consumers.
type receiver struct {
	name         string
	subscription *pubsub.Subscriber
	tracker      processedTracker
	logg         *logger.Logger
	handle       handlerFunc
}

func newReceiver(name string, subscription *pubsub.Subscriber, tracker processedTracker, logg *logger.Logger, handle handlerFunc) (*receiver, error) {
	if subscription == nil {
		return nil, fmt.Errorf("%s subscription required", name)
	}
	if tracker == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &receiver{name: name, subscription: subscription, tracker: tracker, logg: logg, handle: handle}, nil
}

// Run starts the consumer loop until the context is canceled.
func (r *receiver) Run(ctx context.Context) error {
	return r.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if result := r.process(ctx, msg); result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (r *receiver) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"consumer":   r.name,
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		r.logg.Error(logCtx, "failed to decode envelope", err)
		return ackResult
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		r.logg.Error(logCtx, "invalid event id", err)
		return ackResult
	}
	logCtx = r.logg.WithField(logCtx, "event_id", eventID.String())

	already, err := r.tracker.CheckAndMarkProcessed(ctx, r.name, eventID)
	if err != nil {
		r.logg.Error(logCtx, "idempotency check failed", err)
		return nackResult
	}
	if already {
		r.logg.Info(logCtx, "event already processed")
		return ackResult
	}

	if err := r.handle(ctx, logCtx, eventType, envelope.Data); err != nil {
		if errors.Is(err, errSkip) {
			return ackResult
		}
		r.logg.Error(logCtx, "event handling failed", err)
		_ = r.tracker.Delete(ctx, r.name, eventID)
		return nackResult
	}
	return ackResult
}
