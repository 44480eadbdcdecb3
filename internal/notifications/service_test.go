package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/payloads"
)

const notificationsDDL = `CREATE TABLE notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	link TEXT,
	metadata TEXT,
	read_at DATETIME,
	created_at DATETIME
)`

type fakeDirectory struct {
	users  map[uuid.UUID]*models.User
	admins []uuid.UUID
}

func (f fakeDirectory) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeDirectory) ListAdminIDs(context.Context) ([]uuid.UUID, error) {
	return f.admins, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return r.Emit(ctx, tx, event)
}

type harness struct {
	svc     Service
	conn    *gorm.DB
	emitter *recordingEmitter
	user    *models.User
	admins  []uuid.UUID
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.Exec(notificationsDDL).Error)

	user := &models.User{ID: uuid.New(), Email: "punter@example.com", FullName: "Ada Punter"}
	h := &harness{
		conn:    conn,
		emitter: &recordingEmitter{},
		user:    user,
		admins:  []uuid.UUID{uuid.New(), uuid.New()},
		now:     time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Users:    fakeDirectory{users: map[uuid.UUID]*models.User{user.ID: user}, admins: h.admins},
		TxRunner: stubTxRunner{},
		Outbox:   h.emitter,
		Now:      func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestInboxListAndRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := h.svc.Create(ctx, CreateInput{UserID: h.user.ID, Type: enums.NotificationTypeSystem, Title: "Hello", Message: "World"})
		require.NoError(t, err)
	}
	_, err := h.svc.Create(ctx, CreateInput{UserID: uuid.New(), Type: enums.NotificationTypeSystem, Title: "Other", Message: "Inbox"})
	require.NoError(t, err)

	page, err := h.svc.List(ctx, h.user.ID, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)
	require.Equal(t, int64(3), page.Unread)

	require.NoError(t, h.svc.MarkRead(ctx, h.user.ID, page.Items[0].ID))
	require.NoError(t, h.svc.MarkRead(ctx, h.user.ID, page.Items[0].ID))
	requireCode(t, h.svc.MarkRead(ctx, uuid.New(), page.Items[0].ID), pkgerrors.CodeNotFound)

	unread, err := h.svc.UnreadCount(ctx, h.user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), unread)

	marked, err := h.svc.MarkAllRead(ctx, h.user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), marked)

	onlyUnread, err := h.svc.List(ctx, h.user.ID, ListParams{UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, onlyUnread.Items)
}

func TestCreateValidatesInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, CreateInput{UserID: h.user.ID, Type: "marketing", Title: "x", Message: "y"})
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = h.svc.Create(ctx, CreateInput{UserID: h.user.ID, Type: enums.NotificationTypeSystem, Title: " "})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestNotifyAdminsFansOut(t *testing.T) {
	h := newHarness(t)
	count, err := h.svc.NotifyAdmins(context.Background(), CreateInput{
		Type:     enums.NotificationTypePayment,
		Title:    "New pending payment",
		Message:  "ref OV-1",
		Metadata: map[string]any{"reference": "OV-1"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	var rows []models.Notification
	require.NoError(t, h.conn.Order("user_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.JSONEq(t, `{"reference":"OV-1"}`, string(rows[0].Metadata))
}

func TestSendUsesTypeDiscriminator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	row, err := h.svc.Send(ctx, TypedRequest{
		Type:   "payment_approved",
		UserID: h.user.ID.String(),
		Data:   json.RawMessage(`{"plan_name":"VIP","amount":"₦5000.00","reference":"OV-ABC"}`),
	})
	require.NoError(t, err)
	require.Equal(t, enums.NotificationTypePayment, row.Type)
	require.Equal(t, "Payment approved", row.Title)
	require.Contains(t, row.Message, "OV-ABC")

	_, err = h.svc.Send(ctx, TypedRequest{Type: "promo", UserID: h.user.ID.String()})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Send(ctx, TypedRequest{
		Type:   "payment_received",
		UserID: h.user.ID.String(),
		Data:   json.RawMessage(`{"title":"wrong shape"}`),
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Send(ctx, TypedRequest{Type: "welcome", UserID: uuid.NewString()})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestSendCustomKind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	row, err := h.svc.Send(ctx, TypedRequest{
		Type:   "custom",
		UserID: h.user.ID.String(),
		Data:   json.RawMessage(`{"title":"Reply","message":"Support answered","kind":"message"}`),
	})
	require.NoError(t, err)
	require.Equal(t, enums.NotificationTypeMessage, row.Type)

	row, err = h.svc.Send(ctx, TypedRequest{
		Type:   "custom",
		UserID: h.user.ID.String(),
		Data:   json.RawMessage(`{"title":"Heads up","message":"Maintenance tonight"}`),
	})
	require.NoError(t, err)
	require.Equal(t, enums.NotificationTypeSystem, row.Type)

	_, err = h.svc.Send(ctx, TypedRequest{
		Type:   "custom",
		UserID: h.user.ID.String(),
		Data:   json.RawMessage(`{"title":"x","message":"y","kind":"promo"}`),
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestSendEmailQueuesOutboxEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.svc.SendEmail(ctx, TypedRequest{
		Type:   "custom",
		UserID: h.user.ID.String(),
		Data:   json.RawMessage(`{"title":"Heads up","message":"Line one\n\nLine two","link":"/blog"}`),
	})
	require.NoError(t, err)
	require.Len(t, h.emitter.events, 1)
	event := h.emitter.events[0]
	require.Equal(t, enums.EventNotificationEmailRequested, event.EventType)
	payload, ok := event.Data.(payloads.NotificationEmailRequestedEvent)
	require.True(t, ok)
	require.Equal(t, "punter@example.com", payload.To)
	require.Equal(t, "Ada Punter", payload.Name)
	require.Equal(t, "Heads up", payload.Subject)
	require.Equal(t, "/blog", payload.Data["link"])

	err = h.svc.SendEmail(ctx, TypedRequest{Type: "welcome"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCleanupRemovesOldRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	old := models.Notification{ID: uuid.New(), UserID: h.user.ID, Type: enums.NotificationTypeSystem, Title: "old", Message: "old", CreatedAt: h.now.AddDate(0, 0, -40)}
	fresh := models.Notification{ID: uuid.New(), UserID: h.user.ID, Type: enums.NotificationTypeSystem, Title: "new", Message: "new", CreatedAt: h.now.AddDate(0, 0, -1)}
	require.NoError(t, h.conn.Create(&old).Error)
	require.NoError(t, h.conn.Create(&fresh).Error)

	deleted, err := h.svc.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = h.svc.Cleanup(ctx, 0)
	requireCode(t, err, pkgerrors.CodeValidation)
}
