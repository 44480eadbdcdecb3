package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+5))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, 8, LimitWithBuffer(7))
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{At: time.Date(2026, 2, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	require.NoError(t, err)
	require.True(t, want.At.Equal(got.At))
	require.Equal(t, want.ID, got.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, empty)

	_, err = ParseCursor("%%%")
	require.Error(t, err)
}

func TestTrim(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	cursorOf := func(r row) Cursor { return Cursor{At: r.at, ID: r.id} }

	page, next := Trim(rows, 2, cursorOf)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)
	parsed, err := ParseCursor(next)
	require.NoError(t, err)
	require.Equal(t, rows[1].id, parsed.ID)

	page, next = Trim(rows, 5, cursorOf)
	require.Len(t, page, 3)
	require.Empty(t, next)
}

func TestKeysetScope(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	type winning struct {
		ID    uuid.UUID
		WonAt time.Time
	}
	var rows []winning

	stmt := db.Table("winnings").Scopes(Keyset("won_at", nil, 0)).Find(&rows).Statement
	require.Contains(t, stmt.SQL.String(), "ORDER BY won_at DESC, id DESC")
	require.Contains(t, stmt.SQL.String(), "LIMIT 21")
	require.NotContains(t, stmt.SQL.String(), "WHERE")

	cursor := &Cursor{At: time.Now().UTC(), ID: uuid.New()}
	stmt = db.Table("winnings").Scopes(Keyset("won_at", cursor, 5)).Find(&rows).Statement
	require.Contains(t, stmt.SQL.String(), "(won_at, id) < (?, ?)")
	require.Contains(t, stmt.SQL.String(), "LIMIT 6")
	require.Equal(t, []any{cursor.At, cursor.ID}, stmt.Vars)
}
