package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	FullName     string     `gorm:"column:full_name;not null" json:"full_name"`
	Phone        *string    `gorm:"column:phone" json:"phone,omitempty"`
	Country      string     `gorm:"column:country;not null;default:''" json:"country"`
	AvatarURL    *string    `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	IsAdmin      bool       `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
