package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/oddsvault-backend/pkg/db"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

// maxValueBytes bounds a single settings document.
const maxValueBytes = 64 << 10

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Service stores the site's keyed JSON documents (site, contact,
// payment_instructions, ...).
type Service interface {
	Get(ctx context.Context, key string) (*models.SiteSetting, error)
	List(ctx context.Context) ([]models.SiteSetting, error)
	Put(ctx context.Context, actorID uuid.UUID, key string, value json.RawMessage) (*models.SiteSetting, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, key string) (*models.SiteSetting, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	setting, err := s.repo.Find(ctx, key)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "setting %q not found", key)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load setting")
	}
	return setting, nil
}

func (s *service) List(ctx context.Context) ([]models.SiteSetting, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list settings")
	}
	return rows, nil
}

func (s *service) Put(ctx context.Context, actorID uuid.UUID, key string, value json.RawMessage) (*models.SiteSetting, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "null" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value is required")
	}
	if len(trimmed) > maxValueBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value is too large")
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value must be valid json")
	}

	setting := &models.SiteSetting{
		Key:       key,
		Value:     datatypes.JSON(trimmed),
		UpdatedAt: s.now().UTC(),
	}
	if actorID != uuid.Nil {
		setting.UpdatedBy = &actorID
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save setting")
	}
	return setting, nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete setting")
	}
	if !deleted {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "setting %q not found", key)
	}
	return nil
}

func normalizeKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !keyPattern.MatchString(key) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid setting key")
	}
	return key, nil
}
