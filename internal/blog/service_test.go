package blog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

const blogDDL = `CREATE TABLE blog_posts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	excerpt TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	cover_url TEXT,
	published BOOLEAN NOT NULL DEFAULT false,
	published_at DATETIME,
	author_id TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
)`

func newTestService(t *testing.T) *service {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.Exec(blogDDL).Error)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc.(*service)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "how-to-read-odds", Slugify("  How to Read ODDS!! "))
	require.Equal(t, "over-2-5-explained", Slugify("Over 2.5 -- explained"))
	require.Equal(t, "", Slugify("?!"))
}

func TestDraftsHiddenUntilPublished(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	author := uuid.New()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	draft, err := svc.Create(ctx, author, PostRequest{Title: "Bankroll basics", Content: "Stake small."})
	require.NoError(t, err)
	require.Equal(t, "bankroll-basics", draft.Slug)
	require.False(t, draft.Published)

	_, err = svc.GetPublished(ctx, "bankroll-basics")
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	public, err := svc.ListPublished(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, public.Items)

	all, err := svc.ListAll(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, all.Items, 1)

	published, err := svc.SetPublished(ctx, draft.ID, true)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	require.True(t, published.PublishedAt.Equal(fixed))

	got, err := svc.GetPublished(ctx, "Bankroll-Basics")
	require.NoError(t, err)
	require.Equal(t, draft.ID, got.ID)

	svc.now = func() time.Time { return fixed.Add(time.Hour) }
	_, err = svc.SetPublished(ctx, draft.ID, false)
	require.NoError(t, err)
	again, err := svc.SetPublished(ctx, draft.ID, true)
	require.NoError(t, err)
	require.True(t, again.PublishedAt.Equal(fixed))
}

func TestDuplicateSlugConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), PostRequest{Title: "Weekend picks", Content: "x"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.New(), PostRequest{Title: "Other", Slug: "weekend picks", Content: "y"})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, uuid.New(), PostRequest{Title: "  ", Content: "y"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(svc.Delete(ctx, uuid.New())).Code())
}

func TestPublishedListPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	published := true
	for i, title := range []string{"one", "two", "three"} {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		_, err := svc.Create(ctx, uuid.New(), PostRequest{Title: title, Content: "c", Published: &published})
		require.NoError(t, err)
	}

	first, err := svc.ListPublished(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, "three", first.Items[0].Slug)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.ListPublished(ctx, pagination.Params{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, "one", second.Items[0].Slug)
	require.Empty(t, second.Cursor)
}
