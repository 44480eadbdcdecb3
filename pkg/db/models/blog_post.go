package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BlogPost struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Excerpt     string     `gorm:"column:excerpt;not null;default:''" json:"excerpt"`
	Content     string     `gorm:"column:content;not null" json:"content"`
	CoverURL    *string    `gorm:"column:cover_url" json:"cover_url,omitempty"`
	Published   bool       `gorm:"column:published;not null;default:false" json:"published"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	AuthorID    uuid.UUID  `gorm:"column:author_id;type:uuid;not null" json:"author_id"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *BlogPost) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
