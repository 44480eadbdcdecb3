package blog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, post *models.BlogPost) error
	Save(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	List(ctx context.Context, query ListQuery) ([]models.BlogPost, error)
}

// ListQuery pages published posts by published_at and drafts-included
// listings by created_at.
type ListQuery struct {
	PublishedOnly bool
	Limit         int
	Cursor        *pagination.Cursor
}

func (q ListQuery) sortColumn() string {
	if q.PublishedOnly {
		return "published_at"
	}
	return "created_at"
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *repositoryImpl) Save(ctx context.Context, post *models.BlogPost) error {
	post.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BlogPost{})
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repositoryImpl) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).First(&post, "slug = ?", strings.ToLower(strings.TrimSpace(slug))).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repositoryImpl) List(ctx context.Context, query ListQuery) ([]models.BlogPost, error) {
	q := r.db.WithContext(ctx).Model(&models.BlogPost{})
	if query.PublishedOnly {
		q = q.Where("published = ?", true)
	}
	var rows []models.BlogPost
	err := q.Scopes(pagination.Keyset(query.sortColumn(), query.Cursor, query.Limit)).Find(&rows).Error
	return rows, err
}
