package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/oddsvault-backend/api/controllers"
	"github.com/angelmondragon/oddsvault-backend/internal/importer"
	"github.com/angelmondragon/oddsvault-backend/internal/predictions"
	"github.com/angelmondragon/oddsvault-backend/internal/stats"
	"github.com/angelmondragon/oddsvault-backend/internal/transactions"
	pkgAuth "github.com/angelmondragon/oddsvault-backend/pkg/auth"
	"github.com/angelmondragon/oddsvault-backend/pkg/auth/session"
	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubImporter struct {
	previews int
	syncs    int
	actor    uuid.UUID
}

func (s *stubImporter) Preview(_ context.Context, req importer.Request) (*importer.PreviewResult, error) {
	s.previews++
	return &importer.PreviewResult{MinConfidence: req.MinConfidence}, nil
}

func (s *stubImporter) Sync(_ context.Context, actorID uuid.UUID, _ importer.Request) (*importer.SyncResult, error) {
	s.syncs++
	s.actor = actorID
	return &importer.SyncResult{Synced: 3}, nil
}

// stubPredictions only implements List; other calls panic through the nil
// embedded interface.
type stubPredictions struct {
	predictions.Service
	viewer predictions.Viewer
	params predictions.ListParams
}

func (s *stubPredictions) List(_ context.Context, viewer predictions.Viewer, params predictions.ListParams) (*predictions.ListResult, error) {
	s.viewer = viewer
	s.params = params
	return &predictions.ListResult{}, nil
}

type stubTransactions struct {
	transactions.Service
	completed uuid.UUID
}

func (s *stubTransactions) Complete(_ context.Context, _ uuid.UUID, id uuid.UUID) (*transactions.CompletionResult, error) {
	s.completed = id
	return &transactions.CompletionResult{SubscriptionUpdated: true}, nil
}

type stubStats struct{}

func (stubStats) Dashboard(context.Context) (*stats.Dashboard, error) {
	return &stats.Dashboard{Users: 7}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "oddsvault", ExpirationMinutes: 60},
	}
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	reg := prometheus.NewRegistry()
	return Deps{
		Config:      testConfig(),
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Sessions:    stubSessions{},
		Pingers:     map[string]controllers.Pinger{"db": stubPinger{}},
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Importer:    &stubImporter{},
		Predictions: &stubPredictions{},
		Stats:       stubStats{},

		Transactions: &stubTransactions{},
	}
}

func bearer(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  "punter@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	deps := testDeps(t)
	h := NewRouter(deps)

	rec := serve(h, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-OddsVault-Env"))

	rec = serve(h, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	deps.Pingers = map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("down")}}
	rec = serve(NewRouter(deps), http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpointExposesRequestHistogram(t *testing.T) {
	h := NewRouter(testDeps(t))

	serve(h, http.MethodGet, "/health/live", "", "")
	rec := serve(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "oddsvault_http_request_duration_seconds")
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	h := NewRouter(testDeps(t))

	for _, path := range []string{"/api/me", "/api/subscriptions", "/api/transactions", "/api/notifications", "/api/chat/messages", "/api/admin/stats"} {
		rec := serve(h, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdminRoutesRejectRegularUsers(t *testing.T) {
	deps := testDeps(t)
	h := NewRouter(deps)
	user := bearer(t, deps.Config, uuid.New(), enums.RoleUser)

	rec := serve(h, http.MethodGet, "/api/admin/stats", user, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, http.MethodPost, "/api/football/sync-predictions", user, `{"date":"2026-10-15","planType":"free"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	admin := bearer(t, deps.Config, uuid.New(), enums.RoleAdmin)
	rec = serve(h, http.MethodGet, "/api/admin/stats", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data stats.Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.EqualValues(t, 7, env.Data.Users)
}

func TestSyncPredictionsPreviewAndSync(t *testing.T) {
	deps := testDeps(t)
	imp := deps.Importer.(*stubImporter)
	h := NewRouter(deps)
	adminID := uuid.New()
	admin := bearer(t, deps.Config, adminID, enums.RoleAdmin)

	rec := serve(h, http.MethodPost, "/api/football/sync-predictions", admin,
		`{"date":"2026-10-15","planType":"vip","minConfidence":70,"preview":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, imp.previews)
	require.Zero(t, imp.syncs)

	rec = serve(h, http.MethodPost, "/api/football/sync-predictions", admin,
		`{"date":"2026-10-15","planType":"vip"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, imp.syncs)
	require.Equal(t, adminID, imp.actor)
	require.Contains(t, rec.Body.String(), `"synced":3`)
}

func TestPredictionsListIsPublicAndCarriesViewer(t *testing.T) {
	deps := testDeps(t)
	preds := deps.Predictions.(*stubPredictions)
	h := NewRouter(deps)

	rec := serve(h, http.MethodGet, "/api/predictions?planType=free&date=2026-10-15", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uuid.Nil, preds.viewer.UserID)
	require.Equal(t, "free", preds.params.PlanType)
	require.Equal(t, "2026-10-15", preds.params.Date)

	userID := uuid.New()
	rec = serve(h, http.MethodGet, "/api/predictions?planType=vip", bearer(t, deps.Config, userID, enums.RoleUser), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, preds.viewer.UserID)
	require.False(t, preds.viewer.IsAdmin)

	rec = serve(h, http.MethodGet, "/api/predictions?date=15-10-2026", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulatedCompletionRouteFollowsFeatureFlag(t *testing.T) {
	deps := testDeps(t)
	txns := deps.Transactions.(*stubTransactions)
	user := bearer(t, deps.Config, uuid.New(), enums.RoleUser)
	txnID := uuid.New()
	path := "/api/transactions/" + txnID.String() + "/complete"

	rec := serve(NewRouter(deps), http.MethodPost, path, user, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, uuid.Nil, txns.completed)

	deps.Config.FeatureFlags.SimulatedCheckout = true
	rec = serve(NewRouter(deps), http.MethodPost, path, user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, txnID, txns.completed)
}
