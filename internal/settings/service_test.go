package settings

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.Exec(`CREATE TABLE site_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_by TEXT,
		updated_at DATETIME
	)`).Error)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestPutThenGetOverwrites(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := uuid.New()

	_, err := svc.Put(ctx, admin, "Contact", json.RawMessage(`{"whatsapp":"+2348000000000"}`))
	require.NoError(t, err)
	_, err = svc.Put(ctx, admin, "contact", json.RawMessage(`{"whatsapp":"+2348111111111"}`))
	require.NoError(t, err)

	got, err := svc.Get(ctx, "contact")
	require.NoError(t, err)
	require.JSONEq(t, `{"whatsapp":"+2348111111111"}`, string(got.Value))
	require.NotNil(t, got.UpdatedBy)
	require.Equal(t, admin, *got.UpdatedBy)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestPutValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Put(ctx, uuid.New(), "site", json.RawMessage(`{"name":`))
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Put(ctx, uuid.New(), "site", json.RawMessage(`null`))
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Put(ctx, uuid.New(), "../etc", json.RawMessage(`{}`))
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestMissingKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "payment_instructions")
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(svc.Delete(ctx, "payment_instructions")).Code())
}
