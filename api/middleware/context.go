package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

type contextKey string

const ctxSession contextKey = "session"

// Session is the authenticated caller resolved from the bearer token.
type Session struct {
	UserID   uuid.UUID
	Email    string
	Role     enums.Role
	AccessID string
}

func (s Session) IsAdmin() bool {
	return s.Role == enums.RoleAdmin
}

// WithSession injects the caller into the context.
func WithSession(ctx context.Context, s Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, s)
}

// SessionFrom returns the caller when the request was authenticated.
func SessionFrom(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(ctxSession).(Session)
	if !ok || s.UserID == uuid.Nil {
		return Session{}, false
	}
	return s, true
}

func UserIDFromContext(ctx context.Context) string {
	if s, ok := SessionFrom(ctx); ok {
		return s.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if s, ok := SessionFrom(ctx); ok {
		return string(s.Role)
	}
	return ""
}
