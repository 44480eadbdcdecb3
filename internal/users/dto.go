package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Phone       *string    `json:"phone,omitempty"`
	Country     string     `json:"country"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	IsAdmin     bool       `json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        *string
	Country      string
	IsAdmin      bool
}

// UpdateProfileRequest carries the user-editable profile fields. Nil fields
// are left untouched.
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Country   *string `json:"country,omitempty" validate:"omitempty,max=64"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// SetAdminRequest toggles the admin flag on a user.
type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Phone:       u.Phone,
		Country:     u.Country,
		AvatarURL:   u.AvatarURL,
		IsAdmin:     u.IsAdmin,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: c.PasswordHash,
		FullName:     strings.TrimSpace(c.FullName),
		Phone:        c.Phone,
		Country:      strings.TrimSpace(c.Country),
		IsAdmin:      c.IsAdmin,
	}
}

func (r UpdateProfileRequest) columns() map[string]any {
	updates := map[string]any{}
	if r.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*r.FullName)
	}
	if r.Phone != nil {
		updates["phone"] = strings.TrimSpace(*r.Phone)
	}
	if r.Country != nil {
		updates["country"] = strings.TrimSpace(*r.Country)
	}
	if r.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*r.AvatarURL)
	}
	return updates
}
