package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
)

// Viewer is the authenticated participant acting on a conversation.
type Viewer struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Conversation is one row of the admin inbox.
type Conversation struct {
	UserID      uuid.UUID       `json:"user_id"`
	Email       string          `json:"email"`
	FullName    string          `json:"full_name"`
	LastMessage *models.Message `json:"last_message,omitempty"`
	UnreadCount int64           `json:"unread_count"`
}

func lastAt(c Conversation) time.Time {
	if c.LastMessage == nil {
		return time.Time{}
	}
	return c.LastMessage.CreatedAt
}

// SendRequest is the body of the REST send endpoint and of websocket "send"
// frames.
type SendRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// Event types carried on the broker and written to websocket clients.
const (
	EventSync    = "sync"
	EventMessage = "message"
	EventRead    = "read"
	EventError   = "error"
)

// Event is a realtime frame. Sync frames carry the full history; message
// frames one new line; read frames name who read the conversation.
type Event struct {
	Type           string           `json:"type"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	Message        *models.Message  `json:"message,omitempty"`
	Messages       []models.Message `json:"messages,omitempty"`
	ReaderID       *uuid.UUID       `json:"reader_id,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// inboundFrame is what clients send over the socket.
type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
