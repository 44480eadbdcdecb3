package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/oddsvault-backend/pkg/auth"
	"github.com/angelmondragon/oddsvault-backend/pkg/auth/session"
	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "oddsvault", ExpirationMinutes: 60}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok, s.err
}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Email:  "punter@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func captureSession(dst *Session, seen *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst, *seen = SessionFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	for _, header := range []string{"", "Bearer invalid", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code, "header %q", header)
	}
}

func TestAuthPopulatesSession(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.RoleAdmin)

	var got Session
	var seen bool
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(captureSession(&got, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, seen)
	require.Equal(t, userID, got.UserID)
	require.True(t, got.IsAdmin())
	require.NotEmpty(t, got.AccessID)
}

func TestAuthTagsRequestLogger(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.RoleUser)
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	handler := Auth(testJWT, stubSessionVerifier{ok: true}, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logg.Info(r.Context(), "inside")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Contains(t, buf.String(), `"user_id":"`+userID.String()+`"`)
	require.Contains(t, buf.String(), `"actor_role":"user"`)
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token := mintTestToken(t, uuid.New(), enums.RoleUser)
	handler := Auth(testJWT, stubSessionVerifier{ok: false}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSessionStoreFailure(t *testing.T) {
	token := mintTestToken(t, uuid.New(), enums.RoleUser)
	handler := Auth(testJWT, stubSessionVerifier{err: errors.New("redis down")}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestAuthAcceptsQueryTokenOnlyForWebsocketUpgrade(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.RoleUser)

	var got Session
	var seen bool
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(captureSession(&got, &seen))

	plain := httptest.NewRequest(http.MethodGet, "/api/chat/ws?access_token="+token, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, plain)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	upgrade := httptest.NewRequest(http.MethodGet, "/api/chat/ws?access_token="+token, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, upgrade)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, userID, got.UserID)
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	var got Session
	seen := true
	handler := OptionalAuth(testJWT, stubSessionVerifier{ok: true}, nil)(captureSession(&got, &seen))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/predictions", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.False(t, seen)

	req := httptest.NewRequest(http.MethodGet, "/api/predictions", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := RequireAdmin(nil)(ok)

	cases := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"user", WithSession(context.Background(), Session{UserID: uuid.New(), Role: enums.RoleUser}), http.StatusForbidden},
		{"admin", WithSession(context.Background(), Session{UserID: uuid.New(), Role: enums.RoleAdmin}), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil).WithContext(tc.ctx)
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			require.Equal(t, tc.want, resp.Code)
		})
	}
}
