package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

const chatDDL = `CREATE TABLE messages (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	content TEXT NOT NULL,
	read BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME
)`

const usersDDL = `CREATE TABLE users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT ''
)`

type memoryBroker struct {
	mu         sync.Mutex
	subs       map[uuid.UUID][]*memorySubscription
	published  []Event
	publishErr error
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{subs: map[uuid.UUID][]*memorySubscription{}}
}

func (b *memoryBroker) Publish(_ context.Context, conversationID uuid.UUID, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, event)
	for _, sub := range b.subs[conversationID] {
		select {
		case sub.events <- event:
		default:
		}
	}
	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, conversationID uuid.UUID) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &memorySubscription{broker: b, conversationID: conversationID, events: make(chan Event, 16)}
	b.subs[conversationID] = append(b.subs[conversationID], sub)
	return sub, nil
}

func (b *memoryBroker) publishedEvents() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.published...)
}

type memorySubscription struct {
	broker         *memoryBroker
	conversationID uuid.UUID
	events         chan Event
	closed         bool
}

func (s *memorySubscription) Events() <-chan Event { return s.events }

func (s *memorySubscription) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	subs := s.broker.subs[s.conversationID]
	for i, candidate := range subs {
		if candidate == s {
			s.broker.subs[s.conversationID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(s.events)
	return nil
}

func newChatDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.Exec(chatDDL).Error)
	require.NoError(t, conn.Exec(usersDDL).Error)
	return conn
}

func newTestService(t *testing.T) (Service, *memoryBroker, *gorm.DB) {
	t.Helper()
	conn := newChatDB(t)
	broker := newMemoryBroker()
	svc, err := NewService(NewRepository(conn), broker, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, broker, conn
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestParticipantsOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := Viewer{UserID: uuid.New()}
	stranger := Viewer{UserID: uuid.New()}

	_, err := svc.Send(ctx, stranger, owner.UserID, "hi")
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = svc.History(ctx, Viewer{}, owner.UserID)
	requireCode(t, err, pkgerrors.CodeUnauthorized)
	_, err = svc.Send(ctx, owner, owner.UserID, "   ")
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = svc.Send(ctx, owner, owner.UserID, strings.Repeat("x", maxContentLength+1))
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestHistoryIsChronological(t *testing.T) {
	svc, broker, _ := newTestService(t)
	ctx := context.Background()
	owner := Viewer{UserID: uuid.New()}
	admin := Viewer{UserID: uuid.New(), IsAdmin: true}

	_, err := svc.Send(ctx, owner, owner.UserID, "first")
	require.NoError(t, err)
	_, err = svc.Send(ctx, admin, owner.UserID, "second")
	require.NoError(t, err)
	_, err = svc.Send(ctx, owner, owner.UserID, "third")
	require.NoError(t, err)

	history, err := svc.History(ctx, owner, owner.UserID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, "first", history[0].Content)
	require.Equal(t, "third", history[2].Content)
	require.Equal(t, admin.UserID, history[1].SenderID)

	events := broker.publishedEvents()
	require.Len(t, events, 3)
	require.Equal(t, EventMessage, events[0].Type)
}

func TestUnreadCountsExcludeOwnLines(t *testing.T) {
	svc, broker, _ := newTestService(t)
	ctx := context.Background()
	owner := Viewer{UserID: uuid.New()}
	admin := Viewer{UserID: uuid.New(), IsAdmin: true}

	for _, text := range []string{"one", "two"} {
		_, err := svc.Send(ctx, owner, owner.UserID, text)
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, admin, owner.UserID, "reply")
	require.NoError(t, err)

	forAdmin, err := svc.UnreadCount(ctx, admin, owner.UserID)
	require.NoError(t, err)
	require.Equal(t, int64(2), forAdmin)
	forOwner, err := svc.UnreadCount(ctx, owner, owner.UserID)
	require.NoError(t, err)
	require.Equal(t, int64(1), forOwner)

	updated, err := svc.MarkRead(ctx, owner, owner.UserID)
	require.NoError(t, err)
	require.Equal(t, int64(1), updated)
	forAdmin, err = svc.UnreadCount(ctx, admin, owner.UserID)
	require.NoError(t, err)
	require.Equal(t, int64(2), forAdmin)

	events := broker.publishedEvents()
	require.Equal(t, EventRead, events[len(events)-1].Type)
	require.Equal(t, owner.UserID, *events[len(events)-1].ReaderID)
}

func TestMarkAllReadClearsAdminConversationBadge(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	alice := Viewer{UserID: uuid.New()}
	bob := Viewer{UserID: uuid.New()}
	admin := Viewer{UserID: uuid.New(), IsAdmin: true}
	require.NoError(t, conn.Exec("INSERT INTO users (id, email, full_name) VALUES (?, ?, ?)", alice.UserID.String(), "alice@example.com", "Alice").Error)

	_, err := svc.Send(ctx, alice, alice.UserID, "need help")
	require.NoError(t, err)
	_, err = svc.Send(ctx, alice, alice.UserID, "hello?")
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob, bob.UserID, "payment stuck")
	require.NoError(t, err)
	_, err = svc.Send(ctx, admin, alice.UserID, "on it")
	require.NoError(t, err)

	total, err := svc.TotalUnread(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	conversations, err := svc.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	byUser := map[uuid.UUID]Conversation{}
	for _, c := range conversations {
		byUser[c.UserID] = c
	}
	require.Equal(t, int64(2), byUser[alice.UserID].UnreadCount)
	require.Equal(t, "alice@example.com", byUser[alice.UserID].Email)
	require.Equal(t, "on it", byUser[alice.UserID].LastMessage.Content)
	require.Equal(t, alice.UserID, conversations[0].UserID)

	_, err = svc.MarkRead(ctx, admin, alice.UserID)
	require.NoError(t, err)

	conversations, err = svc.Conversations(ctx)
	require.NoError(t, err)
	for _, c := range conversations {
		if c.UserID == alice.UserID {
			require.Zero(t, c.UnreadCount)
		} else {
			require.Equal(t, int64(1), c.UnreadCount)
		}
	}
}

func TestPublishFailureDoesNotFailSend(t *testing.T) {
	svc, broker, _ := newTestService(t)
	broker.publishErr = errors.New("redis down")
	owner := Viewer{UserID: uuid.New()}

	msg, err := svc.Send(context.Background(), owner, owner.UserID, "still stored")
	require.NoError(t, err)
	require.Equal(t, "still stored", msg.Content)
}
