package predictions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// Service serves market picks and correct-score picks behind plan
// entitlement.
type Service interface {
	List(ctx context.Context, viewer Viewer, params ListParams) (*ListResult, error)
	Get(ctx context.Context, viewer Viewer, id uuid.UUID) (*models.Prediction, error)
	Create(ctx context.Context, req PredictionRequest) (*models.Prediction, error)
	Update(ctx context.Context, id uuid.UUID, req PredictionRequest) (*models.Prediction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordResult(ctx context.Context, id uuid.UUID, req ResultRequest) (*models.Prediction, error)

	ListCorrectScores(ctx context.Context, viewer Viewer, params ListParams) (*CorrectScoreListResult, error)
	GetCorrectScore(ctx context.Context, viewer Viewer, id uuid.UUID) (*models.CorrectScorePrediction, error)
	CreateCorrectScore(ctx context.Context, req CorrectScoreRequest) (*models.CorrectScorePrediction, error)
	UpdateCorrectScore(ctx context.Context, id uuid.UUID, req CorrectScoreRequest) (*models.CorrectScorePrediction, error)
	DeleteCorrectScore(ctx context.Context, id uuid.UUID) error
	RecordCorrectScoreResult(ctx context.Context, id uuid.UUID, req ResultRequest) (*models.CorrectScorePrediction, error)

	CountForDay(ctx context.Context, day time.Time) (int64, error)
}

type accessChecker interface {
	HasAccess(ctx context.Context, userID uuid.UUID, planSlug string) (bool, error)
}

type service struct {
	repo   Repository
	access accessChecker
}

func NewService(repo Repository, access accessChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("predictions repository required")
	}
	if access == nil {
		return nil, fmt.Errorf("access checker required")
	}
	return &service{repo: repo, access: access}, nil
}

// authorize lets anyone read the free plan, admins read everything and
// everyone else read only plans they hold a live subscription to.
func (s *service) authorize(ctx context.Context, viewer Viewer, planType string) error {
	if planType == enums.PlanTypeFree || viewer.IsAdmin {
		return nil
	}
	if viewer.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view these predictions")
	}
	ok, err := s.access.HasAccess(ctx, viewer.UserID, planType)
	if err != nil {
		return asServiceError(err, "check subscription")
	}
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "an active %s subscription is required", planType)
	}
	return nil
}

func (s *service) List(ctx context.Context, viewer Viewer, params ListParams) (*ListResult, error) {
	query, err := s.buildQuery(ctx, viewer, params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, *query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list predictions")
	}
	page, next := pagination.Trim(rows, params.Limit, func(p models.Prediction) pagination.Cursor {
		return pagination.Cursor{At: p.KickoffAt, ID: p.ID}
	})
	return &ListResult{Items: page, Cursor: next}, nil
}

func (s *service) ListCorrectScores(ctx context.Context, viewer Viewer, params ListParams) (*CorrectScoreListResult, error) {
	query, err := s.buildQuery(ctx, viewer, params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListCorrectScores(ctx, *query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list correct scores")
	}
	page, next := pagination.Trim(rows, params.Limit, func(p models.CorrectScorePrediction) pagination.Cursor {
		return pagination.Cursor{At: p.KickoffAt, ID: p.ID}
	})
	return &CorrectScoreListResult{Items: page, Cursor: next}, nil
}

func (s *service) buildQuery(ctx context.Context, viewer Viewer, params ListParams) (*ListQuery, error) {
	planType := enums.NormalizePlanSlug(params.PlanType)
	if planType == "" && !viewer.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan_type is required")
	}
	if planType != "" {
		if err := s.authorize(ctx, viewer, planType); err != nil {
			return nil, err
		}
	}

	query := &ListQuery{PlanType: planType, Limit: params.Limit}
	if raw := strings.TrimSpace(params.Date); raw != "" {
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD")
		}
		end := day.AddDate(0, 0, 1)
		query.From = &day
		query.To = &end
	}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParsePredictionStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		query.Status = &status
	}
	if raw := strings.TrimSpace(params.Source); raw != "" {
		source, err := enums.ParsePredictionSource(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source")
		}
		query.Source = &source
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	return query, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, id uuid.UUID) (*models.Prediction, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, viewer, p.PlanType); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Create(ctx context.Context, req PredictionRequest) (*models.Prediction, error) {
	if err := validateOdds(req.Odds); err != nil {
		return nil, err
	}
	p := newPrediction(req)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create prediction")
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req PredictionRequest) (*models.Prediction, error) {
	if err := validateOdds(req.Odds); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(p)
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update prediction")
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete prediction")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "prediction not found")
	}
	return nil
}

func (s *service) RecordResult(ctx context.Context, id uuid.UUID, req ResultRequest) (*models.Prediction, error) {
	status, result, err := parseResult(req)
	if err != nil {
		return nil, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	p.Result = result
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record result")
	}
	return p, nil
}

func (s *service) GetCorrectScore(ctx context.Context, viewer Viewer, id uuid.UUID) (*models.CorrectScorePrediction, error) {
	p, err := s.loadCorrectScore(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, viewer, p.PlanType); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) CreateCorrectScore(ctx context.Context, req CorrectScoreRequest) (*models.CorrectScorePrediction, error) {
	if err := validateOdds(req.Odds); err != nil {
		return nil, err
	}
	p := newCorrectScore(req)
	if err := s.repo.CreateCorrectScore(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create correct score")
	}
	return p, nil
}

func (s *service) UpdateCorrectScore(ctx context.Context, id uuid.UUID, req CorrectScoreRequest) (*models.CorrectScorePrediction, error) {
	if err := validateOdds(req.Odds); err != nil {
		return nil, err
	}
	p, err := s.loadCorrectScore(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(p)
	if err := s.repo.SaveCorrectScore(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update correct score")
	}
	return p, nil
}

func (s *service) DeleteCorrectScore(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteCorrectScore(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete correct score")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "correct score not found")
	}
	return nil
}

func (s *service) RecordCorrectScoreResult(ctx context.Context, id uuid.UUID, req ResultRequest) (*models.CorrectScorePrediction, error) {
	status, result, err := parseResult(req)
	if err != nil {
		return nil, err
	}
	p, err := s.loadCorrectScore(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	p.Result = result
	if err := s.repo.SaveCorrectScore(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record result")
	}
	return p, nil
}

func (s *service) CountForDay(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.CountBetween(ctx, start, start.AddDate(0, 0, 1))
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prediction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load prediction")
	}
	return p, nil
}

func (s *service) loadCorrectScore(ctx context.Context, id uuid.UUID) (*models.CorrectScorePrediction, error) {
	p, err := s.repo.FindCorrectScore(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "correct score not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load correct score")
	}
	return p, nil
}

var minOdds = decimal.NewFromInt(1)

func validateOdds(odds decimal.Decimal) error {
	if odds.LessThanOrEqual(minOdds) {
		return pkgerrors.New(pkgerrors.CodeValidation, "odds must be greater than 1")
	}
	return nil
}

func parseResult(req ResultRequest) (enums.PredictionStatus, *string, error) {
	status, err := enums.ParsePredictionStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	result := strings.TrimSpace(req.Result)
	if !status.Settled() || result == "" {
		return status, nil, nil
	}
	return status, &result, nil
}

func asServiceError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
