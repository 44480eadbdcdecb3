package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/internal/users"
	pkgAuth "github.com/angelmondragon/oddsvault-backend/pkg/auth"
	"github.com/angelmondragon/oddsvault-backend/pkg/auth/session"
	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/oddsvault-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "oddsvault",
	ExpirationMinutes: 30,
}

func TestLoginMintsRoleFromAdminFlag(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.add(t, "admin@example.com", "s3cretpass", true)
	svc, sessions, _ := buildTestService(t, repo)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " ADMIN@example.com ", Password: "s3cretpass"})
	require.NoError(t, err)
	require.Equal(t, "refresh-1", resp.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, enums.RoleAdmin, claims.Role)
	require.Equal(t, admin.ID, claims.UserID)
	require.Equal(t, admin.ID, sessions.owners[claims.ID])
	require.NotNil(t, repo.byEmail["admin@example.com"].LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(t, "user@example.com", "s3cretpass", false)
	svc, _, _ := buildTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "wrong-pass1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "s3cretpass"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRegisterQueuesWelcomeEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, emitter := buildTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "New@Example.com",
		Password: "goodpass1",
		FullName: "Ada Obi",
		Country:  "Nigeria",
	})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", resp.User.Email)
	require.False(t, resp.User.IsAdmin)

	require.Len(t, emitter.events, 1)
	evt := emitter.events[0]
	require.Equal(t, enums.EventNotificationEmailRequested, evt.EventType)
	data, ok := evt.Data.(payloads.NotificationEmailRequestedEvent)
	require.True(t, ok)
	require.Equal(t, enums.EmailTemplateWelcome, data.Template)
	require.Equal(t, "new@example.com", data.To)
}

func TestRegisterValidation(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(t, "taken@example.com", "s3cretpass", false)
	svc, _, emitter := buildTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "weak@example.com", Password: "short", FullName: "W"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Register(context.Background(), RegisterRequest{Email: "taken@example.com", Password: "goodpass1", FullName: "T"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Empty(t, emitter.events)
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(t, "user@example.com", "s3cretpass", false)
	svc, sessions, _ := buildTestService(t, repo)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = svc.Refresh(context.Background(), RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), claims.ID))
	require.NotContains(t, sessions.tokens, claims.ID)
}

func buildTestService(t *testing.T, repo *stubUserRepo) (Service, *stubSessionManager, *stubEmitter) {
	t.Helper()
	sessions := &stubSessionManager{tokens: map[string]string{}, owners: map[string]uuid.UUID{}}
	emitter := &stubEmitter{}
	svc, err := NewService(ServiceParams{
		TxRunner:       stubTxRunner{},
		UserRepo:       repo,
		SessionManager: sessions,
		Outbox:         emitter,
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)
	return svc, sessions, emitter
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return s.Emit(ctx, tx, event)
}

type stubSessionManager struct {
	tokens map[string]string
	owners map[string]uuid.UUID
	seq    int
}

func (s *stubSessionManager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	s.seq++
	token := "refresh-" + string(rune('0'+s.seq))
	s.tokens[accessID] = token
	s.owners[accessID] = userID
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (uuid.UUID, string, string, error) {
	token, ok := s.tokens[oldAccessID]
	if !ok || token != provided {
		return uuid.Nil, "", "", session.ErrInvalidRefreshToken
	}
	owner := s.owners[oldAccessID]
	delete(s.tokens, oldAccessID)
	next := session.NewAccessID()
	fresh, err := s.Generate(ctx, owner, next)
	return owner, next, fresh, err
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	return nil
}

type stubUserRepo struct {
	byEmail map[string]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepo) add(t *testing.T, email, password string, admin bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Email: email, PasswordHash: hash, FullName: "Test", IsAdmin: admin}
	s.byEmail[email] = user
	return user
}

func (s *stubUserRepo) WithTx(*gorm.DB) users.Repository { return s }

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateProfile(context.Context, uuid.UUID, map[string]any) error {
	return errors.New("not implemented")
}

func (s *stubUserRepo) SetAdmin(context.Context, uuid.UUID, bool) error {
	return errors.New("not implemented")
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.LastLoginAt = &at
	return nil
}

func (s *stubUserRepo) List(context.Context, users.ListUsersQuery) ([]models.User, error) {
	return nil, nil
}

func (s *stubUserRepo) Count(context.Context) (int64, error) {
	return int64(len(s.byEmail)), nil
}

func (s *stubUserRepo) ListAdminIDs(context.Context) ([]uuid.UUID, error) {
	return nil, nil
}
