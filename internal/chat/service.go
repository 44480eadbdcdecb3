package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

const (
	historyLimit     = 500
	maxContentLength = 2000
)

// Service is the support chat between each user and the admins.
type Service interface {
	History(ctx context.Context, viewer Viewer, conversationID uuid.UUID) ([]models.Message, error)
	Send(ctx context.Context, viewer Viewer, conversationID uuid.UUID, content string) (*models.Message, error)
	MarkRead(ctx context.Context, viewer Viewer, conversationID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, viewer Viewer, conversationID uuid.UUID) (int64, error)
	Conversations(ctx context.Context) ([]Conversation, error)
	TotalUnread(ctx context.Context) (int64, error)
	Subscribe(ctx context.Context, viewer Viewer, conversationID uuid.UUID) (Subscription, error)
}

type service struct {
	repo   Repository
	broker Broker
	logg   *logger.Logger
}

func NewService(repo Repository, broker Broker, logg *logger.Logger) (Service, error) {
	switch {
	case repo == nil:
		return nil, fmt.Errorf("chat repository required")
	case broker == nil:
		return nil, fmt.Errorf("chat broker required")
	case logg == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, broker: broker, logg: logg}, nil
}

// authorize lets users into their own conversation and admins into any.
func authorize(viewer Viewer, conversationID uuid.UUID) error {
	if viewer.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if conversationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversation id required")
	}
	if !viewer.IsAdmin && viewer.UserID != conversationID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a participant in this conversation")
	}
	return nil
}

func (s *service) History(ctx context.Context, viewer Viewer, conversationID uuid.UUID) ([]models.Message, error) {
	if err := authorize(viewer, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.repo.History(ctx, conversationID, historyLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load chat history")
	}
	if rows == nil {
		rows = []models.Message{}
	}
	return rows, nil
}

func (s *service) Send(ctx context.Context, viewer Viewer, conversationID uuid.UUID, content string) (*models.Message, error) {
	if err := authorize(viewer, conversationID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "message exceeds %d characters", maxContentLength)
	}

	msg := &models.Message{
		UserID:   conversationID,
		SenderID: viewer.UserID,
		Content:  content,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store chat message")
	}
	s.publish(ctx, conversationID, Event{Type: EventMessage, ConversationID: conversationID, Message: msg})
	return msg, nil
}

func (s *service) MarkRead(ctx context.Context, viewer Viewer, conversationID uuid.UUID) (int64, error) {
	if err := authorize(viewer, conversationID); err != nil {
		return 0, err
	}
	updated, err := s.repo.MarkRead(ctx, conversationID, viewer.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark chat read")
	}
	if updated > 0 {
		reader := viewer.UserID
		s.publish(ctx, conversationID, Event{Type: EventRead, ConversationID: conversationID, ReaderID: &reader})
	}
	return updated, nil
}

func (s *service) UnreadCount(ctx context.Context, viewer Viewer, conversationID uuid.UUID) (int64, error) {
	if err := authorize(viewer, conversationID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnread(ctx, conversationID, viewer.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread chat")
	}
	return count, nil
}

func (s *service) Conversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.repo.Conversations(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list conversations")
	}
	return rows, nil
}

func (s *service) TotalUnread(ctx context.Context) (int64, error) {
	count, err := s.repo.CountUnreadFromUsers(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread chat")
	}
	return count, nil
}

func (s *service) Subscribe(ctx context.Context, viewer Viewer, conversationID uuid.UUID) (Subscription, error) {
	if err := authorize(viewer, conversationID); err != nil {
		return nil, err
	}
	sub, err := s.broker.Subscribe(ctx, conversationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to conversation")
	}
	return sub, nil
}

// publish is best-effort: the line is stored and clients resync on
// reconnect.
func (s *service) publish(ctx context.Context, conversationID uuid.UUID, event Event) {
	if err := s.broker.Publish(ctx, conversationID, event); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"conversation_id": conversationID.String(),
			"event":           event.Type,
		})
		s.logg.Error(logCtx, "chat.publish_failed", err)
	}
}
