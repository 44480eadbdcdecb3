package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// Repository persists payment transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, at time.Time) (bool, error)
	List(ctx context.Context, query ListQuery) ([]models.Transaction, error)
	CountByStatus(ctx context.Context, status enums.TransactionStatus) (int64, error)
}

// ListQuery filters transaction listings. UserID scopes to one user.
type ListQuery struct {
	UserID *uuid.UUID
	Status *enums.TransactionStatus
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

func (r *repositoryImpl) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// Transition moves a row from one status to another. It reports false when
// the row was not in the expected status.
func (r *repositoryImpl) Transition(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	if to == enums.TransactionStatusCompleted {
		updates["completed_at"] = at
	}
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, query ListQuery) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	var rows []models.Transaction
	err := q.Scopes(pagination.Keyset("created_at", query.Cursor, query.Limit)).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CountByStatus(ctx context.Context, status enums.TransactionStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
