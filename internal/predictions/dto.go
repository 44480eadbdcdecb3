package predictions

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// Viewer identifies who is reading gated picks. A zero UserID is anonymous.
type Viewer struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ListParams filters a prediction listing. Date is YYYY-MM-DD in UTC.
// Source only narrows market picks; correct scores carry no source.
type ListParams struct {
	PlanType string
	Date     string
	Status   string
	Source   string
	Limit    int
	Cursor   string
}

// ListResult wraps a page of market picks.
type ListResult struct {
	Items  []models.Prediction `json:"items"`
	Cursor string              `json:"cursor"`
}

// CorrectScoreListResult wraps a page of correct-score picks.
type CorrectScoreListResult struct {
	Items  []models.CorrectScorePrediction `json:"items"`
	Cursor string                          `json:"cursor"`
}

// PredictionRequest creates or replaces a market pick.
type PredictionRequest struct {
	PlanType   string          `json:"plan_type" validate:"required,max=64"`
	HomeTeam   string          `json:"home_team" validate:"required,max=120"`
	AwayTeam   string          `json:"away_team" validate:"required,max=120"`
	League     string          `json:"league" validate:"omitempty,max=120"`
	Market     string          `json:"market" validate:"required,max=64"`
	Odds       decimal.Decimal `json:"odds"`
	Confidence int             `json:"confidence" validate:"min=0,max=100"`
	KickoffAt  time.Time       `json:"kickoff_at" validate:"required"`
}

// CorrectScoreRequest creates or replaces a correct-score pick.
type CorrectScoreRequest struct {
	PlanType  string          `json:"plan_type" validate:"required,max=64"`
	HomeTeam  string          `json:"home_team" validate:"required,max=120"`
	AwayTeam  string          `json:"away_team" validate:"required,max=120"`
	League    string          `json:"league" validate:"omitempty,max=120"`
	Score     string          `json:"score" validate:"required,max=16"`
	Odds      decimal.Decimal `json:"odds"`
	KickoffAt time.Time       `json:"kickoff_at" validate:"required"`
}

// ResultRequest settles a pick.
type ResultRequest struct {
	Status string `json:"status" validate:"required,oneof=won lost void pending"`
	Result string `json:"result" validate:"omitempty,max=32"`
}

func (r PredictionRequest) apply(p *models.Prediction) {
	p.PlanType = enums.NormalizePlanSlug(r.PlanType)
	p.HomeTeam = strings.TrimSpace(r.HomeTeam)
	p.AwayTeam = strings.TrimSpace(r.AwayTeam)
	p.League = strings.TrimSpace(r.League)
	p.Market = strings.TrimSpace(r.Market)
	p.Odds = r.Odds
	p.Confidence = r.Confidence
	p.KickoffAt = r.KickoffAt.UTC()
}

func (r CorrectScoreRequest) apply(p *models.CorrectScorePrediction) {
	p.PlanType = enums.NormalizePlanSlug(r.PlanType)
	p.HomeTeam = strings.TrimSpace(r.HomeTeam)
	p.AwayTeam = strings.TrimSpace(r.AwayTeam)
	p.League = strings.TrimSpace(r.League)
	p.Score = strings.TrimSpace(r.Score)
	p.Odds = r.Odds
	p.KickoffAt = r.KickoffAt.UTC()
}

func newPrediction(r PredictionRequest) *models.Prediction {
	p := &models.Prediction{
		Status: enums.PredictionStatusPending,
		Source: enums.PredictionSourceManual,
	}
	r.apply(p)
	return p
}

func newCorrectScore(r CorrectScoreRequest) *models.CorrectScorePrediction {
	p := &models.CorrectScorePrediction{Status: enums.PredictionStatusPending}
	r.apply(p)
	return p
}
