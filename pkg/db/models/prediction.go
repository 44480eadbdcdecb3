package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

// Prediction is a single market pick on a fixture.
type Prediction struct {
	ID         uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	PlanType   string                 `gorm:"column:plan_type;not null;index" json:"plan_type"`
	HomeTeam   string                 `gorm:"column:home_team;not null" json:"home_team"`
	AwayTeam   string                 `gorm:"column:away_team;not null" json:"away_team"`
	League     string                 `gorm:"column:league;not null;default:''" json:"league"`
	Market     string                 `gorm:"column:market;not null" json:"market"`
	Odds       decimal.Decimal        `gorm:"column:odds;type:numeric(8,2);not null" json:"odds"`
	Confidence int                    `gorm:"column:confidence;not null" json:"confidence"`
	KickoffAt  time.Time              `gorm:"column:kickoff_at;not null;index" json:"kickoff_at"`
	Status     enums.PredictionStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	Result     *string                `gorm:"column:result" json:"result,omitempty"`
	FixtureID  *int64                 `gorm:"column:fixture_id" json:"fixture_id,omitempty"`
	Source     enums.PredictionSource `gorm:"column:source;not null;default:'manual'" json:"source"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *Prediction) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// CorrectScorePrediction is an exact-score pick.
type CorrectScorePrediction struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	PlanType  string                 `gorm:"column:plan_type;not null;index" json:"plan_type"`
	HomeTeam  string                 `gorm:"column:home_team;not null" json:"home_team"`
	AwayTeam  string                 `gorm:"column:away_team;not null" json:"away_team"`
	League    string                 `gorm:"column:league;not null;default:''" json:"league"`
	Score     string                 `gorm:"column:score;not null" json:"score"`
	Odds      decimal.Decimal        `gorm:"column:odds;type:numeric(8,2);not null" json:"odds"`
	KickoffAt time.Time              `gorm:"column:kickoff_at;not null;index" json:"kickoff_at"`
	Status    enums.PredictionStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	Result    *string                `gorm:"column:result" json:"result,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CorrectScorePrediction) TableName() string { return "correct_score_predictions" }

func (p *CorrectScorePrediction) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
