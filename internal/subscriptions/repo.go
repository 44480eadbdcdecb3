package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// Repository persists user subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.UserSubscription) error
	Save(ctx context.Context, sub *models.UserSubscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error)
	FindByUserPlan(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error)
	List(ctx context.Context, query ListQuery) ([]models.UserSubscription, error)
	ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.UserSubscription, error)
	HasLive(ctx context.Context, userID uuid.UUID, planSlug string, now time.Time) (bool, error)
	LiveUserIDs(ctx context.Context, planSlug string, now time.Time) ([]uuid.UUID, error)
	CountByStatus(ctx context.Context, status enums.SubscriptionStatus) (int64, error)
}

// ListQuery filters the admin subscription listing.
type ListQuery struct {
	Status *enums.SubscriptionStatus
	PlanID *uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, sub *models.UserSubscription) error {
	return r.db.WithContext(ctx).Omit("Plan").Create(sub).Error
}

func (r *repositoryImpl) Save(ctx context.Context, sub *models.UserSubscription) error {
	sub.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Omit("Plan").Save(sub).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := r.db.WithContext(ctx).Preload("Plan").First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repositoryImpl) FindByUserPlan(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND plan_id = ?", userID, planID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error) {
	var rows []models.UserSubscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) List(ctx context.Context, query ListQuery) ([]models.UserSubscription, error) {
	q := r.db.WithContext(ctx).Preload("Plan").Model(&models.UserSubscription{})
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.PlanID != nil {
		q = q.Where("plan_id = ?", *query.PlanID)
	}
	var rows []models.UserSubscription
	err := q.Scopes(pagination.Keyset("created_at", query.Cursor, query.Limit)).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.UserSubscription, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []models.UserSubscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date <= ?", enums.SubscriptionStatusActive, now).
		Order("expiry_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) HasLive(ctx context.Context, userID uuid.UUID, planSlug string, now time.Time) (bool, error) {
	var count int64
	err := r.live(ctx, planSlug, now).
		Where("user_subscriptions.user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) LiveUserIDs(ctx context.Context, planSlug string, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.live(ctx, planSlug, now).Distinct().Pluck("user_subscriptions.user_id", &ids).Error
	return ids, err
}

func (r *repositoryImpl) CountByStatus(ctx context.Context, status enums.SubscriptionStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserSubscription{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *repositoryImpl) live(ctx context.Context, planSlug string, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.UserSubscription{}).
		Joins("JOIN plans ON plans.id = user_subscriptions.plan_id").
		Where("plans.slug = ?", planSlug).
		Where("user_subscriptions.status = ?", enums.SubscriptionStatusActive).
		Where("(user_subscriptions.expiry_date IS NULL OR user_subscriptions.expiry_date > ?)", now)
}
