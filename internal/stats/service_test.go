package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

func fixed(n int64) Counter {
	return func(context.Context) (int64, error) { return n, nil }
}

func TestDashboardCollectsEveryCount(t *testing.T) {
	var gotDay time.Time
	svc, err := NewService(Sources{
		Users:               fixed(120),
		ActiveSubscriptions: fixed(37),
		PendingTransactions: fixed(4),
		UnreadMessages:      fixed(9),
		PredictionsForDay: func(_ context.Context, day time.Time) (int64, error) {
			gotDay = day
			return 12, nil
		},
	})
	require.NoError(t, err)
	now := time.Date(2026, 6, 1, 22, 30, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return now }

	out, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(120), out.Users)
	require.Equal(t, int64(37), out.ActiveSubscriptions)
	require.Equal(t, int64(4), out.PendingTransactions)
	require.Equal(t, int64(9), out.UnreadMessages)
	require.Equal(t, int64(12), out.PredictionsToday)
	require.True(t, gotDay.Equal(now))
}

func TestDashboardFailsWhenAnyCountFails(t *testing.T) {
	svc, err := NewService(Sources{
		Users:               fixed(1),
		ActiveSubscriptions: func(context.Context) (int64, error) { return 0, errors.New("db down") },
		PendingTransactions: fixed(1),
		UnreadMessages:      fixed(1),
		PredictionsForDay:   func(context.Context, time.Time) (int64, error) { return 1, nil },
	})
	require.NoError(t, err)

	_, err = svc.Dashboard(context.Background())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())
}

func TestNewServiceRequiresSources(t *testing.T) {
	_, err := NewService(Sources{Users: fixed(1)})
	require.Error(t, err)
}
