package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

type VIPWinning struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string              `gorm:"column:title;not null" json:"title"`
	Fixture   string              `gorm:"column:fixture;not null" json:"fixture"`
	League    string              `gorm:"column:league;not null;default:''" json:"league"`
	Odds      decimal.Decimal     `gorm:"column:odds;type:numeric(8,2);not null" json:"odds"`
	Stake     string              `gorm:"column:stake;not null;default:''" json:"stake"`
	Status    enums.WinningStatus `gorm:"column:status;not null" json:"status"`
	ImageURL  *string             `gorm:"column:image_url" json:"image_url,omitempty"`
	WonAt     time.Time           `gorm:"column:won_at;not null" json:"won_at"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (VIPWinning) TableName() string { return "vip_winnings" }

func (w *VIPWinning) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
