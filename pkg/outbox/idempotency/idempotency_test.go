package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], m.err
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "ov:idempotency:" + scope + ":" + id
}

func TestTrackerClaimsOncePerConsumer(t *testing.T) {
	store := newMemoryStore()
	tracker, err := NewTracker(store, 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	already, err := tracker.CheckAndMarkProcessed(ctx, "notification-email", eventID)
	require.NoError(t, err)
	require.False(t, already)

	key := "ov:idempotency:consumer:notification-email:" + eventID.String()
	require.Contains(t, store.values, key)
	require.Equal(t, 24*time.Hour, store.ttls[key])

	already, err = tracker.CheckAndMarkProcessed(ctx, "notification-email", eventID)
	require.NoError(t, err)
	require.True(t, already)

	already, err = tracker.CheckAndMarkProcessed(ctx, "domain-events", eventID)
	require.NoError(t, err)
	require.False(t, already)
}

func TestTrackerDeleteAllowsRetry(t *testing.T) {
	tracker, err := NewTracker(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = tracker.CheckAndMarkProcessed(ctx, "domain-events", eventID)
	require.NoError(t, err)
	seen, err := tracker.Seen(ctx, "domain-events", eventID)
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, tracker.Delete(ctx, "domain-events", eventID))
	seen, err = tracker.Seen(ctx, "domain-events", eventID)
	require.NoError(t, err)
	require.False(t, seen)
}

func TestTrackerRejectsMissingInputs(t *testing.T) {
	tracker, err := NewTracker(newMemoryStore(), 0)
	require.NoError(t, err)

	_, err = tracker.CheckAndMarkProcessed(context.Background(), "", uuid.New())
	require.ErrorIs(t, err, errConsumerRequired)
	_, err = tracker.CheckAndMarkProcessed(context.Background(), "c", uuid.Nil)
	require.ErrorIs(t, err, errEventRequired)

	_, err = NewTracker(nil, time.Hour)
	require.Error(t, err)
	_, err = NewTracker(newMemoryStore(), -time.Second)
	require.Error(t, err)
}

func TestTrackerSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	tracker, err := NewTracker(store, time.Hour)
	require.NoError(t, err)

	_, err = tracker.CheckAndMarkProcessed(context.Background(), "c", uuid.New())
	require.ErrorContains(t, err, "redis down")
}
