package winnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, w *models.VIPWinning) error
	Save(ctx context.Context, w *models.VIPWinning) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.VIPWinning, error)
	List(ctx context.Context, status *enums.WinningStatus, limit int, cursor *pagination.Cursor) ([]models.VIPWinning, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, w *models.VIPWinning) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *repositoryImpl) Save(ctx context.Context, w *models.VIPWinning) error {
	w.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(w).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.VIPWinning{})
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.VIPWinning, error) {
	var w models.VIPWinning
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// List orders by won_at.
func (r *repositoryImpl) List(ctx context.Context, status *enums.WinningStatus, limit int, cursor *pagination.Cursor) ([]models.VIPWinning, error) {
	q := r.db.WithContext(ctx).Model(&models.VIPWinning{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.VIPWinning
	err := q.Scopes(pagination.Keyset("won_at", cursor, limit)).Find(&rows).Error
	return rows, err
}
