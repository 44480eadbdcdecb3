package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

func openOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.Exec(`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		next_attempt_at DATETIME,
		last_error TEXT
	)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME
	)`).Error)
	return conn
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	aggregateID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   aggregateID,
			Data:          map[string]string{"reference": "OV-1"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.JSONEq(t, `{"reference":"OV-1"}`, string(envelope.Data))
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.ErrorIs(t, err, errTxRequired)
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	conn := openOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     "order_created",
			AggregateType: enums.AggregateTransaction,
			AggregateID:   uuid.New(),
		})
	})
	require.ErrorContains(t, err, "unknown outbox event type")

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	conn := openOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)
	event := DomainEvent{
		EventType:     enums.EventTransactionCompleted,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   uuid.New(),
		Data:          map[string]string{},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}))
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestFetchSkipsBackedOffAndPublishedRows(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn).WithRetryBackoff(time.Minute, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	due := models.OutboxEvent{EventType: enums.EventTransactionCreated, AggregateType: enums.AggregateTransaction, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	failing := models.OutboxEvent{EventType: enums.EventTransactionCreated, AggregateType: enums.AggregateTransaction, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	published := models.OutboxEvent{EventType: enums.EventTransactionCreated, AggregateType: enums.AggregateTransaction, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, conn.Create(&due).Error)
	require.NoError(t, conn.Create(&failing).Error)
	require.NoError(t, conn.Create(&published).Error)

	require.NoError(t, repo.MarkPublishedTx(conn, published.ID))
	require.NoError(t, repo.MarkFailedTx(conn, failing.ID, errors.New("pubsub down")))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, due.ID, rows[0].ID)

	var reloaded models.OutboxEvent
	require.NoError(t, conn.First(&reloaded, "id = ?", failing.ID).Error)
	require.Equal(t, 1, reloaded.AttemptCount)
	require.NotNil(t, reloaded.LastError)
	require.NotNil(t, reloaded.NextAttemptAt)
	require.WithinDuration(t, now.Add(time.Minute), *reloaded.NextAttemptAt, time.Second)

	repo.now = func() time.Time { return now.Add(2 * time.Minute) }
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn)
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	published := models.OutboxEvent{EventType: enums.EventSubscriptionExpired, AggregateType: enums.AggregateSubscription, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	pending := models.OutboxEvent{EventType: enums.EventSubscriptionExpired, AggregateType: enums.AggregateSubscription, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, conn.Create(&published).Error)
	require.NoError(t, conn.Create(&pending).Error)
	repo.now = func() time.Time { return old }
	require.NoError(t, repo.MarkPublishedTx(conn, published.ID))

	deleted, err := repo.DeletePublishedBefore(nil, old.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)
}

func TestRetryDelayCapsAtMax(t *testing.T) {
	repo := NewRepository(nil).WithRetryBackoff(time.Second, 5*time.Second)
	require.Equal(t, time.Second, repo.retryDelay(1))
	require.Equal(t, 4*time.Second, repo.retryDelay(3))
	require.Equal(t, 5*time.Second, repo.retryDelay(10))
}

func TestDLQParkTruncatesAndReplayRequeues(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn)
	dlq := NewDLQRepository(conn)
	ctx := context.Background()

	event := models.OutboxEvent{EventType: enums.EventTransactionCreated, AggregateType: enums.AggregateTransaction, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, conn.Create(&event).Error)
	cause := errors.New(strings.Repeat("x", maxDLQErrorLen+10))
	require.NoError(t, repo.MarkTerminalTx(conn, event.ID, cause, 10))
	event.AttemptCount = 10
	require.NoError(t, dlq.Park(conn, event, enums.OutboxDLQReasonMaxAttempts, cause))

	rows, err := dlq.List(ctx, 0, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, *rows[0].ErrorMessage, maxDLQErrorLen)
	require.Equal(t, 10, rows[0].AttemptCount)

	fetched, err := repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Empty(t, fetched)

	_, err = dlq.Replay(ctx, rows[0].ID)
	require.NoError(t, err)

	rows, err = dlq.List(ctx, 0, nil)
	require.NoError(t, err)
	require.Empty(t, rows)

	repo.now = func() time.Time { return time.Now().Add(time.Minute) }
	fetched, err = repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	require.Equal(t, 0, fetched[0].AttemptCount)

	_, err = dlq.Replay(ctx, uuid.New())
	require.ErrorIs(t, err, ErrDeadLetterNotFound)
}
