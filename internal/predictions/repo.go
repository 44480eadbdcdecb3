package predictions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// Repository persists market picks and correct-score picks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, p *models.Prediction) error
	CreateBatch(ctx context.Context, rows []models.Prediction) error
	Save(ctx context.Context, p *models.Prediction) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error)
	List(ctx context.Context, query ListQuery) ([]models.Prediction, error)
	CountBetween(ctx context.Context, from, to time.Time) (int64, error)

	CreateCorrectScore(ctx context.Context, p *models.CorrectScorePrediction) error
	SaveCorrectScore(ctx context.Context, p *models.CorrectScorePrediction) error
	DeleteCorrectScore(ctx context.Context, id uuid.UUID) (bool, error)
	FindCorrectScore(ctx context.Context, id uuid.UUID) (*models.CorrectScorePrediction, error)
	ListCorrectScores(ctx context.Context, query ListQuery) ([]models.CorrectScorePrediction, error)
}

// ListQuery filters picks by plan, kickoff window and status. Pages are keyed
// on kickoff_at.
type ListQuery struct {
	PlanType string
	From     *time.Time
	To       *time.Time
	Status   *enums.PredictionStatus
	Source   *enums.PredictionSource
	Limit    int
	Cursor   *pagination.Cursor
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

func (r *repositoryImpl) Create(ctx context.Context, p *models.Prediction) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, rows []models.Prediction) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

func (r *repositoryImpl) Save(ctx context.Context, p *models.Prediction) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Prediction{})
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	var p models.Prediction
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repositoryImpl) List(ctx context.Context, query ListQuery) ([]models.Prediction, error) {
	var rows []models.Prediction
	q := r.db.WithContext(ctx).Model(&models.Prediction{})
	if query.Source != nil {
		q = q.Where("source = ?", *query.Source)
	}
	err := applyFilters(q, query).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("kickoff_at >= ? AND kickoff_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CreateCorrectScore(ctx context.Context, p *models.CorrectScorePrediction) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repositoryImpl) SaveCorrectScore(ctx context.Context, p *models.CorrectScorePrediction) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repositoryImpl) DeleteCorrectScore(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CorrectScorePrediction{})
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) FindCorrectScore(ctx context.Context, id uuid.UUID) (*models.CorrectScorePrediction, error) {
	var p models.CorrectScorePrediction
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repositoryImpl) ListCorrectScores(ctx context.Context, query ListQuery) ([]models.CorrectScorePrediction, error) {
	var rows []models.CorrectScorePrediction
	err := applyFilters(r.db.WithContext(ctx).Model(&models.CorrectScorePrediction{}), query).Find(&rows).Error
	return rows, err
}

func applyFilters(q *gorm.DB, query ListQuery) *gorm.DB {
	if query.PlanType != "" {
		q = q.Where("plan_type = ?", query.PlanType)
	}
	if query.From != nil {
		q = q.Where("kickoff_at >= ?", *query.From)
	}
	if query.To != nil {
		q = q.Where("kickoff_at < ?", *query.To)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	return q.Scopes(pagination.Keyset("kickoff_at", query.Cursor, query.Limit))
}
