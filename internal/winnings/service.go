package winnings

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

// Service publishes the VIP results showcase.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.VIPWinning, error)
	Create(ctx context.Context, req WinningRequest) (*models.VIPWinning, error)
	Update(ctx context.Context, id uuid.UUID, req WinningRequest) (*models.VIPWinning, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// WinningRequest creates or replaces a showcase entry.
type WinningRequest struct {
	Title    string          `json:"title" validate:"required,max=160"`
	Fixture  string          `json:"fixture" validate:"required,max=160"`
	League   string          `json:"league" validate:"omitempty,max=120"`
	Odds     decimal.Decimal `json:"odds"`
	Stake    string          `json:"stake" validate:"omitempty,max=64"`
	Status   string          `json:"status" validate:"required,oneof=won lost"`
	ImageURL string          `json:"image_url" validate:"omitempty,url"`
	WonAt    time.Time       `json:"won_at" validate:"required"`
}

type ListParams struct {
	Status string
	Limit  int
	Cursor string
}

type ListResult struct {
	Items  []models.VIPWinning `json:"items"`
	Cursor string              `json:"cursor"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("winnings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var status *enums.WinningStatus
	if raw := strings.TrimSpace(params.Status); raw != "" {
		parsed, err := enums.ParseWinningStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = &parsed
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, status, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list winnings")
	}
	page, next := pagination.Trim(rows, params.Limit, func(w models.VIPWinning) pagination.Cursor {
		return pagination.Cursor{At: w.WonAt, ID: w.ID}
	})
	return &ListResult{Items: page, Cursor: next}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.VIPWinning, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "winning not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load winning")
	}
	return w, nil
}

func (s *service) Create(ctx context.Context, req WinningRequest) (*models.VIPWinning, error) {
	w := &models.VIPWinning{}
	if err := req.apply(w); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create winning")
	}
	return w, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req WinningRequest) (*models.VIPWinning, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(w); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, w); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update winning")
	}
	return w, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete winning")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "winning not found")
	}
	return nil
}

func (r WinningRequest) apply(w *models.VIPWinning) error {
	status, err := enums.ParseWinningStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	if !r.Odds.GreaterThan(decimal.NewFromInt(1)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "odds must be greater than 1")
	}
	w.Title = strings.TrimSpace(r.Title)
	w.Fixture = strings.TrimSpace(r.Fixture)
	w.League = strings.TrimSpace(r.League)
	w.Odds = r.Odds
	w.Stake = strings.TrimSpace(r.Stake)
	w.Status = status
	w.WonAt = r.WonAt.UTC()
	w.ImageURL = nil
	if url := strings.TrimSpace(r.ImageURL); url != "" {
		w.ImageURL = &url
	}
	return nil
}
