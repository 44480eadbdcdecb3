package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

// SocketSession drives one websocket client attached to a conversation.
// Every session starts with a sync frame holding the full history, so a
// client that reconnects simply resyncs.
type SocketSession struct {
	conn           *websocket.Conn
	svc            Service
	sub            Subscription
	viewer         Viewer
	conversationID uuid.UUID
	cfg            config.ChatConfig
	logg           *logger.Logger
	outbound       chan Event
}

func NewSocketSession(conn *websocket.Conn, svc Service, sub Subscription, viewer Viewer, conversationID uuid.UUID, cfg config.ChatConfig, logg *logger.Logger) *SocketSession {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 4096
	}
	return &SocketSession{
		conn:           conn,
		svc:            svc,
		sub:            sub,
		viewer:         viewer,
		conversationID: conversationID,
		cfg:            cfg,
		logg:           logg,
		outbound:       make(chan Event, 8),
	}
}

// Run blocks until the client disconnects or ctx is canceled. It closes the
// connection and the subscription on return.
func (s *SocketSession) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()
	defer s.sub.Close()

	if err := s.sendSync(ctx); err != nil {
		s.logg.Error(ctx, "chat.sync_failed", err)
		return
	}

	go s.readLoop(ctx, cancel)

	ping := time.NewTicker(s.cfg.PongWait * 9 / 10)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.cfg.WriteWait))
			return
		case event, ok := <-s.sub.Events():
			if !ok {
				return
			}
			if err := s.write(event); err != nil {
				return
			}
		case event := <-s.outbound:
			if err := s.write(event); err != nil {
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *SocketSession) sendSync(ctx context.Context) error {
	history, err := s.svc.History(ctx, s.viewer, s.conversationID)
	if err != nil {
		return err
	}
	return s.write(Event{Type: EventSync, ConversationID: s.conversationID, Messages: history})
}

func (s *SocketSession) write(event Event) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	return s.conn.WriteJSON(event)
}

func (s *SocketSession) readLoop(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		var frame inboundFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "chat.socket_closed")
			}
			return
		}
		s.handle(ctx, frame)
	}
}

func (s *SocketSession) handle(ctx context.Context, frame inboundFrame) {
	var err error
	switch frame.Type {
	case "send":
		_, err = s.svc.Send(ctx, s.viewer, s.conversationID, frame.Content)
	case "read":
		_, err = s.svc.MarkRead(ctx, s.viewer, s.conversationID)
	case EventSync:
		var history []models.Message
		history, err = s.svc.History(ctx, s.viewer, s.conversationID)
		if err == nil {
			s.enqueue(ctx, Event{Type: EventSync, ConversationID: s.conversationID, Messages: history})
		}
	default:
		err = pkgerrors.Newf(pkgerrors.CodeValidation, "unknown frame type %q", frame.Type)
	}
	if err != nil {
		s.enqueue(ctx, Event{Type: EventError, ConversationID: s.conversationID, Error: publicMessage(err)})
	}
}

func (s *SocketSession) enqueue(ctx context.Context, event Event) {
	select {
	case s.outbound <- event:
	case <-ctx.Done():
	}
}

func publicMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return "internal error"
}
