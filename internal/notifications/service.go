package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// Service manages user inboxes and queues outbound email.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Create(ctx context.Context, input CreateInput) (*models.Notification, error)
	NotifyAdmins(ctx context.Context, input CreateInput) (int, error)
	Send(ctx context.Context, req TypedRequest) (*models.Notification, error)
	SendEmail(ctx context.Context, req TypedRequest) error
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// CreateInput is an in-app notification for one user.
type CreateInput struct {
	UserID   uuid.UUID
	Type     enums.NotificationType
	Title    string
	Message  string
	Link     string
	Metadata map[string]any
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
	Unread int64                 `json:"unread"`
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles notification dependencies.
type ServiceParams struct {
	Repo     Repository
	Users    userDirectory
	TxRunner txRunner
	Outbox   outbox.Emitter
	Now      func() time.Time
}

type service struct {
	repo   Repository
	users  userDirectory
	tx     txRunner
	outbox outbox.Emitter
	now    func() time.Time
}

// NewService wires notifications dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("notifications repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("user directory required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:   params.Repo,
		users:  params.Users,
		tx:     params.TxRunner,
		outbox: params.Outbox,
		now:    now,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	query := ListQuery{UserID: userID, Limit: params.Limit, UnreadOnly: params.UnreadOnly}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread notifications")
	}
	page, next := pagination.Trim(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{At: n.CreatedAt, ID: n.ID}
	})
	return &ListResult{Items: page, Cursor: next, Unread: unread}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	result, err := s.repo.MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Notification, error) {
	row, err := s.build(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create notification")
	}
	return row, nil
}

// NotifyAdmins copies input into every admin inbox. input.UserID is ignored.
func (s *service) NotifyAdmins(ctx context.Context, input CreateInput) (int, error) {
	ids, err := s.users.ListAdminIDs(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list admins")
	}
	rows := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		input.UserID = id
		row, err := s.build(input)
		if err != nil {
			return 0, err
		}
		rows = append(rows, *row)
	}
	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin notifications")
	}
	return len(rows), nil
}

func (s *service) Send(ctx context.Context, req TypedRequest) (*models.Notification, error) {
	c, err := decodeContent(req)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user_id is required")
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.Create(ctx, CreateInput{
		UserID:   userID,
		Type:     c.kind,
		Title:    c.title,
		Message:  c.message,
		Link:     c.link,
		Metadata: map[string]any{"template": string(c.template)},
	})
}

// SendEmail queues the email as a notification_email_requested event. The
// recipient is Email when set, otherwise the user's address.
func (s *service) SendEmail(ctx context.Context, req TypedRequest) error {
	c, err := decodeContent(req)
	if err != nil {
		return err
	}
	to := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if to == "" {
		userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "email or user_id is required")
		}
		user, err := s.loadUser(ctx, userID)
		if err != nil {
			return err
		}
		to = user.Email
		if name == "" {
			name = user.FullName
		}
	}

	event := payloads.NotificationEmailRequestedEvent{
		Template: c.template,
		To:       to,
		Name:     name,
		Subject:  c.subject,
		Data:     c.fields,
	}
	if c.link != "" {
		event.Data["link"] = c.link
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationEmailRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   uuid.New(),
			Data:          event,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue email")
	}
	return nil
}

func (s *service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "retention must be positive")
	}
	deleted, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete old notifications")
	}
	return deleted, nil
}

func (s *service) build(input CreateInput) (*models.Notification, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid notification type %q", input.Type)
	}
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message are required")
	}
	row := &models.Notification{
		UserID:  input.UserID,
		Type:    input.Type,
		Title:   title,
		Message: message,
	}
	if link := strings.TrimSpace(input.Link); link != "" {
		row.Link = &link
	}
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid metadata")
		}
		row.Metadata = datatypes.JSON(raw)
	}
	return row, nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}
