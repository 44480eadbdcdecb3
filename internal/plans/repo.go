package plans

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

// Repository persists plans and their country prices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plan *models.Plan) error
	Save(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	FindBySlug(ctx context.Context, slug string) (*models.Plan, error)
	List(ctx context.Context, activeOnly bool) ([]models.Plan, error)
	CountSubscriptions(ctx context.Context, planID uuid.UUID) (int64, error)
	FindPrice(ctx context.Context, planID uuid.UUID, country string, durationDays int) (*models.PlanPrice, error)
	SavePrice(ctx context.Context, price *models.PlanPrice) error
	DeletePrice(ctx context.Context, planID, priceID uuid.UUID) (bool, error)
	ListPrices(ctx context.Context, planID uuid.UUID) ([]models.PlanPrice, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds a plans repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Omit("Prices").Create(plan).Error
}

func (r *repositoryImpl) Save(ctx context.Context, plan *models.Plan) error {
	plan.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Omit("Prices").Save(plan).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", id).Delete(&models.PlanPrice{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Plan{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.withPrices(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repositoryImpl) FindBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.withPrices(ctx).First(&plan, "slug = ?", enums.NormalizePlanSlug(slug)).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repositoryImpl) List(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	query := r.withPrices(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.Plan
	if err := query.Order("sort_order ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) CountSubscriptions(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserSubscription{}).Where("plan_id = ?", planID).Count(&count).Error
	return count, err
}

func (r *repositoryImpl) FindPrice(ctx context.Context, planID uuid.UUID, country string, durationDays int) (*models.PlanPrice, error) {
	var price models.PlanPrice
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND LOWER(country) = ? AND duration_days = ?", planID, strings.ToLower(strings.TrimSpace(country)), durationDays).
		First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repositoryImpl) SavePrice(ctx context.Context, price *models.PlanPrice) error {
	price.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(price).Error
}

func (r *repositoryImpl) DeletePrice(ctx context.Context, planID, priceID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND plan_id = ?", priceID, planID).Delete(&models.PlanPrice{})
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) ListPrices(ctx context.Context, planID uuid.UUID) ([]models.PlanPrice, error) {
	var rows []models.PlanPrice
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("duration_days ASC, country ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) withPrices(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Prices", func(db *gorm.DB) *gorm.DB {
		return db.Order("duration_days ASC, country ASC")
	})
}
