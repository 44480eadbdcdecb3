package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one chat line. UserID names the conversation (always the
// non-admin participant); SenderID is whoever wrote it.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	SenderID  uuid.UUID `gorm:"column:sender_id;type:uuid;not null" json:"sender_id"`
	Content   string    `gorm:"column:content;not null" json:"content"`
	Read      bool      `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
