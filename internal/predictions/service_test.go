package predictions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

const predictionsDDL = `CREATE TABLE predictions (
	id TEXT PRIMARY KEY,
	plan_type TEXT NOT NULL,
	home_team TEXT NOT NULL,
	away_team TEXT NOT NULL,
	league TEXT NOT NULL DEFAULT '',
	market TEXT NOT NULL,
	odds TEXT NOT NULL,
	confidence INTEGER NOT NULL,
	kickoff_at DATETIME NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	result TEXT,
	fixture_id INTEGER,
	source TEXT NOT NULL DEFAULT 'manual',
	created_at DATETIME,
	updated_at DATETIME
)`

const correctScoresDDL = `CREATE TABLE correct_score_predictions (
	id TEXT PRIMARY KEY,
	plan_type TEXT NOT NULL,
	home_team TEXT NOT NULL,
	away_team TEXT NOT NULL,
	league TEXT NOT NULL DEFAULT '',
	score TEXT NOT NULL,
	odds TEXT NOT NULL,
	kickoff_at DATETIME NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	result TEXT,
	created_at DATETIME,
	updated_at DATETIME
)`

type fakeAccess struct {
	allowed map[string]bool
	calls   int
}

func (f *fakeAccess) HasAccess(_ context.Context, _ uuid.UUID, planSlug string) (bool, error) {
	f.calls++
	return f.allowed[planSlug], nil
}

func newTestService(t *testing.T) (Service, *fakeAccess) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.Exec(predictionsDDL).Error)
	require.NoError(t, conn.Exec(correctScoresDDL).Error)

	access := &fakeAccess{allowed: map[string]bool{}}
	svc, err := NewService(NewRepository(conn), access)
	require.NoError(t, err)
	return svc, access
}

func pick(planType string, kickoff time.Time) PredictionRequest {
	return PredictionRequest{
		PlanType:   planType,
		HomeTeam:   "Arsenal",
		AwayTeam:   "Chelsea",
		League:     "Premier League",
		Market:     "home_win",
		Odds:       decimal.RequireFromString("1.95"),
		Confidence: 80,
		KickoffAt:  kickoff,
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestFreePlanIsPublic(t *testing.T) {
	svc, access := newTestService(t)
	ctx := context.Background()
	kickoff := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, pick(enums.PlanTypeFree, kickoff))
	require.NoError(t, err)

	result, err := svc.List(ctx, Viewer{}, ListParams{PlanType: enums.PlanTypeFree, Date: "2026-06-01"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Zero(t, access.calls)
}

func TestPaidPlanRequiresEntitlement(t *testing.T) {
	svc, access := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, pick("vip", time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = svc.List(ctx, Viewer{}, ListParams{PlanType: "vip"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	member := Viewer{UserID: uuid.New()}
	_, err = svc.Get(ctx, member, created.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	access.allowed["vip"] = true
	got, err := svc.Get(ctx, member, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	access.allowed["vip"] = false
	_, err = svc.Get(ctx, Viewer{UserID: uuid.New(), IsAdmin: true}, created.ID)
	require.NoError(t, err)
}

func TestPlanTypeCaseFoldsOnWriteAndRead(t *testing.T) {
	svc, access := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, pick("Daily-2-Odds", time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, enums.PlanTypeDaily2Odds, created.PlanType)

	access.allowed[enums.PlanTypeDaily2Odds] = true
	result, err := svc.List(ctx, Viewer{UserID: uuid.New()}, ListParams{PlanType: "DAILY_2_ODDS"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	_, err = svc.List(ctx, Viewer{UserID: uuid.New()}, ListParams{PlanType: "Daily_2_Odds_VIP"})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestListFiltersByDayAndPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, pick(enums.PlanTypeFree, day.Add(time.Duration(12+i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, pick(enums.PlanTypeFree, day.AddDate(0, 0, 1).Add(time.Hour)))
	require.NoError(t, err)

	first, err := svc.List(ctx, Viewer{}, ListParams{PlanType: enums.PlanTypeFree, Date: "2026-06-01", Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)
	require.True(t, first.Items[0].KickoffAt.After(first.Items[1].KickoffAt))

	second, err := svc.List(ctx, Viewer{}, ListParams{PlanType: enums.PlanTypeFree, Date: "2026-06-01", Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.Cursor)

	_, err = svc.List(ctx, Viewer{}, ListParams{PlanType: enums.PlanTypeFree, Date: "01/06/2026"})
	requireCode(t, err, pkgerrors.CodeValidation)

	count, err := svc.CountForDay(ctx, day.Add(9*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestListFiltersBySource(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, pick(enums.PlanTypeFree, time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	manual, err := svc.List(ctx, Viewer{}, ListParams{PlanType: enums.PlanTypeFree, Source: "manual"})
	require.NoError(t, err)
	require.Len(t, manual.Items, 1)

	imported, err := svc.List(ctx, Viewer{}, ListParams{PlanType: enums.PlanTypeFree, Source: "import"})
	require.NoError(t, err)
	require.Empty(t, imported.Items)

	_, err = svc.List(ctx, Viewer{}, ListParams{PlanType: enums.PlanTypeFree, Source: "scraper"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRecordResultAndValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := pick(enums.PlanTypeFree, time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC))
	req.Odds = decimal.RequireFromString("1.00")
	_, err := svc.Create(ctx, req)
	requireCode(t, err, pkgerrors.CodeValidation)

	created, err := svc.Create(ctx, pick(enums.PlanTypeFree, req.KickoffAt))
	require.NoError(t, err)

	settled, err := svc.RecordResult(ctx, created.ID, ResultRequest{Status: "won", Result: "2-0"})
	require.NoError(t, err)
	require.Equal(t, enums.PredictionStatusWon, settled.Status)
	require.Equal(t, "2-0", *settled.Result)

	_, err = svc.RecordResult(ctx, created.ID, ResultRequest{Status: "maybe"})
	requireCode(t, err, pkgerrors.CodeValidation)

	require.NoError(t, svc.Delete(ctx, created.ID))
	requireCode(t, svc.Delete(ctx, created.ID), pkgerrors.CodeNotFound)
}

func TestCorrectScoreLifecycle(t *testing.T) {
	svc, access := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateCorrectScore(ctx, CorrectScoreRequest{
		PlanType:  "correct_score",
		HomeTeam:  "Hearts",
		AwayTeam:  "Kotoko",
		Score:     "2-1",
		Odds:      decimal.RequireFromString("8.50"),
		KickoffAt: time.Date(2026, 6, 2, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	viewer := Viewer{UserID: uuid.New()}
	_, err = svc.ListCorrectScores(ctx, viewer, ListParams{PlanType: "correct_score"})
	requireCode(t, err, pkgerrors.CodeForbidden)

	access.allowed["correct_score"] = true
	list, err := svc.ListCorrectScores(ctx, viewer, ListParams{PlanType: "correct_score"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	settled, err := svc.RecordCorrectScoreResult(ctx, created.ID, ResultRequest{Status: "lost", Result: "1-1"})
	require.NoError(t, err)
	require.Equal(t, enums.PredictionStatusLost, settled.Status)

	require.NoError(t, svc.DeleteCorrectScore(ctx, created.ID))
	_, err = svc.GetCorrectScore(ctx, viewer, created.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
