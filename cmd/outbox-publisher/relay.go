package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/metrics"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/registry"
)

const (
	outcomePublished  = "published"
	outcomeRetry      = "retry"
	outcomeDeadLetter = "dead_letter"

	defaultBatchSize      = 50
	defaultMaxAttempts    = 10
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 10 * time.Second
	maxIdleInterval       = 10 * time.Second
)

type txRunner interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
}

type deadLetters interface {
	Park(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error
}

type resolver interface {
	Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicPublisher sends one message to a topic and blocks until the broker
// acknowledges it.
type topicPublisher interface {
	Ping(ctx context.Context) error
	Publish(ctx context.Context, topic string, msg *gcppubsub.Message) error
}

type RelayParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Events         eventStore
	DeadLetters    deadLetters
	Registry       resolver
	Topics         topicPublisher
	Metrics        *metrics.OutboxMetrics
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	PublishTimeout time.Duration
}

// Relay drains outbox_events into Pub/Sub. Each batch runs in one
// transaction so the row locks hold until every row's outcome is written.
type Relay struct {
	logg           *logger.Logger
	db             txRunner
	events         eventStore
	dlq            deadLetters
	registry       resolver
	topics         topicPublisher
	metrics        *metrics.OutboxMetrics
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger required")
	case p.DB == nil:
		return nil, errors.New("database required")
	case p.Events == nil:
		return nil, errors.New("outbox repository required")
	case p.DeadLetters == nil:
		return nil, errors.New("dead letter repository required")
	case p.Registry == nil:
		return nil, errors.New("event registry required")
	case p.Topics == nil:
		return nil, errors.New("topic publisher required")
	}
	r := &Relay{
		logg:           p.Logger,
		db:             p.DB,
		events:         p.Events,
		dlq:            p.DeadLetters,
		registry:       p.Registry,
		topics:         p.Topics,
		metrics:        p.Metrics,
		batchSize:      p.BatchSize,
		maxAttempts:    p.MaxAttempts,
		pollInterval:   p.PollInterval,
		publishTimeout: p.PublishTimeout,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.pollInterval <= 0 {
		r.pollInterval = defaultPollInterval
	}
	if r.publishTimeout <= 0 {
		r.publishTimeout = defaultPublishTimeout
	}
	return r, nil
}

// Run polls until ctx is canceled. Full batches are drained back to back;
// empty polls and failures back off up to maxIdleInterval.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := r.topics.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}

	wait := r.pollInterval
	for {
		handled, err := r.Drain(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logg.Error(ctx, "outbox.batch_failed", err)
			wait = min(max(wait*2, r.pollInterval), maxIdleInterval)
		case handled >= r.batchSize:
			wait = 0
		case handled > 0:
			wait = r.pollInterval
		default:
			wait = min(max(wait*2, r.pollInterval), maxIdleInterval)
		}
		if wait == 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(wait)):
		}
	}
}

// Drain handles one batch and reports how many rows it touched.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	start := time.Now()
	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		for _, row := range rows {
			outcome, err := r.deliver(ctx, tx, row)
			if err != nil {
				return err
			}
			r.metrics.Record(string(row.EventType), outcome)
			handled++
		}
		return nil
	})
	if handled > 0 {
		r.metrics.ObserveBatch(time.Since(start))
	}
	return handled, err
}

// deliver publishes row and records the outcome. A returned error means the
// outcome itself could not be written and the batch must roll back.
func (r *Relay) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (string, error) {
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"event_id":     row.ID.String(),
		"event_type":   string(row.EventType),
		"aggregate_id": row.AggregateID.String(),
		"attempt":      row.AttemptCount + 1,
	})

	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return r.fail(logCtx, tx, row, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()
	if err := r.topics.Publish(pubCtx, resolved.Descriptor.Topic, buildMessage(row)); err != nil {
		return r.fail(logCtx, tx, row, err)
	}

	if err := r.events.MarkPublishedTx(tx, row.ID); err != nil {
		return "", fmt.Errorf("mark %s published: %w", row.ID, err)
	}
	r.logg.Debug(logCtx, "outbox.published")
	return outcomePublished, nil
}

func (r *Relay) fail(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, cause error) (string, error) {
	var nonRetryable registry.NonRetryableError
	reason := enums.OutboxDLQReasonMaxAttempts
	terminal := row.AttemptCount+1 >= r.maxAttempts
	if errors.As(cause, &nonRetryable) {
		reason = enums.OutboxDLQReasonNonRetryable
		terminal = true
	}

	if !terminal {
		if err := r.events.MarkFailedTx(tx, row.ID, cause); err != nil {
			return "", fmt.Errorf("mark %s failed: %w", row.ID, err)
		}
		r.logg.Warn(r.logg.WithField(ctx, "error", cause.Error()), "outbox.publish_retry")
		return outcomeRetry, nil
	}

	if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return "", fmt.Errorf("mark %s terminal: %w", row.ID, err)
	}
	row.AttemptCount = r.maxAttempts
	if err := r.dlq.Park(tx, row, reason, cause); err != nil {
		return "", fmt.Errorf("park %s: %w", row.ID, err)
	}
	r.logg.Error(r.logg.WithField(ctx, "reason", string(reason)), "outbox.dead_lettered", cause)
	return outcomeDeadLetter, nil
}

func buildMessage(row models.OutboxEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       row.ID.String(),
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// jitter spreads polls from several publisher replicas by up to a fifth of d.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	spread := int64(d) / 5
	if spread == 0 {
		return d
	}
	return d - time.Duration(spread) + time.Duration(rand.Int64N(2*spread))
}
