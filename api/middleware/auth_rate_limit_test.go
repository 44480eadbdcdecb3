package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

type fakeWindowLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeWindowLimiter() *fakeWindowLimiter {
	return &fakeWindowLimiter{counts: map[string]int64{}}
}

func (f *fakeWindowLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestAuthRateLimitPreservesBody(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 2, EmailLimit: 2}
	handler := AuthRateLimit(policy, newFakeWindowLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"email":"punter@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("punter@example.com", "1.2.3.4"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitEmailLimitIgnoresCase(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, EmailLimit: 2}
	handler := AuthRateLimit(policy, newFakeWindowLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	emails := []string{"blocked@example.com", "BLOCKED@example.com", " blocked@example.com "}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, "10.0.0."+string(rune('1'+i))))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "60", rec.Header().Get("Retry-After"))

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, string(pkgerrors.CodeRateLimit), body.Error.Code)
	}
}

func TestAuthRateLimitIPLimitUsesForwardedHeader(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "register", Window: time.Minute, IPLimit: 1}
	limiter := newFakeWindowLimiter()
	handler := AuthRateLimit(policy, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := loginRequest("a"+string(rune('0'+i))+"@example.com", "9.9.9.9")
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code)
	}
	require.Contains(t, limiter.counts, "auth:register:ip:203.0.113.7")
}

func TestAuthRateLimitStoreFailureIsDependencyError(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 5}
	limiter := newFakeWindowLimiter()
	limiter.err = io.ErrUnexpectedEOF
	handler := AuthRateLimit(policy, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("x@example.com", "1.1.1.1"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := AuthRateLimit(AuthRateLimitPolicy{Name: "login"}, newFakeWindowLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("x@example.com", "1.1.1.1"))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
