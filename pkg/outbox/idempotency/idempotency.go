// Package idempotency dedupes Pub/Sub redeliveries per consumer.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Store is the slice of the Redis client the tracker needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var (
	errConsumerRequired = errors.New("consumer name is required")
	errEventRequired    = errors.New("event id is required")
)

// Tracker marks event IDs as handled for ttl. A zero ttl keeps markers
// until Redis evicts them.
type Tracker struct {
	store Store
	ttl   time.Duration
}

func NewTracker(store Store, ttl time.Duration) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Tracker{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed claims eventID for consumer. It reports true when a
// previous delivery already claimed it.
func (t *Tracker) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := t.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), t.ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Seen reports whether eventID was claimed without claiming it.
func (t *Tracker) Seen(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	v, err := t.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != "", nil
}

// Delete releases a claim so the next redelivery is handled again.
func (t *Tracker) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return err
	}
	return t.store.Del(ctx, key)
}

func (t *Tracker) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errConsumerRequired
	case eventID == uuid.Nil:
		return "", errEventRequired
	}
	return t.store.IdempotencyKey("consumer:"+consumer, eventID.String()), nil
}
