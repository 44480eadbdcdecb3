package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// Service exposes profile and admin user management.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*UserDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	SetAdmin(ctx context.Context, actorID, targetID uuid.UUID, isAdmin bool) (*UserDTO, error)
}

// ListParams configures the admin user listing.
type ListParams struct {
	Limit  int
	Cursor string
	Search string
}

// ListResult wraps a page of users and the cursor for the next page.
type ListResult struct {
	Items  []UserDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

type service struct {
	repo Repository
}

// NewService wires the users service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	if req.FullName != nil && *req.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name cannot be empty")
	}
	if err := s.repo.UpdateProfile(ctx, id, req.columns()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return s.Get(ctx, id)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := ListUsersQuery{Limit: params.Limit, Search: params.Search}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	page, next := pagination.Trim(rows, params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{At: u.CreatedAt, ID: u.ID}
	})

	items := make([]UserDTO, 0, len(page))
	for i := range page {
		items = append(items, *FromModel(&page[i]))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

// SetAdmin grants or revokes admin rights. Admins cannot demote themselves.
func (s *service) SetAdmin(ctx context.Context, actorID, targetID uuid.UUID, isAdmin bool) (*UserDTO, error) {
	if actorID == targetID && !isAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot remove your own admin access")
	}
	if err := s.repo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set admin")
	}
	return s.Get(ctx, targetID)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}
