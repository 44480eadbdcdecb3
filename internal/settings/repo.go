package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
)

type Repository interface {
	Find(ctx context.Context, key string) (*models.SiteSetting, error)
	List(ctx context.Context) ([]models.SiteSetting, error)
	Upsert(ctx context.Context, setting *models.SiteSetting) error
	Delete(ctx context.Context, key string) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Find(ctx context.Context, key string) (*models.SiteSetting, error) {
	var setting models.SiteSetting
	if err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.SiteSetting, error) {
	var rows []models.SiteSetting
	err := r.db.WithContext(ctx).Order("key ASC").Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) Upsert(ctx context.Context, setting *models.SiteSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(setting).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, key string) (bool, error) {
	result := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.SiteSetting{})
	return result.RowsAffected > 0, result.Error
}
