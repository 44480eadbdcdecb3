package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

const (
	defaultRetryBase = 2 * time.Second
	defaultRetryMax  = 5 * time.Minute
)

type Repository struct {
	db        *gorm.DB
	now       func() time.Time
	retryBase time.Duration
	retryMax  time.Duration
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:        db,
		now:       time.Now,
		retryBase: defaultRetryBase,
		retryMax:  defaultRetryMax,
	}
}

// WithRetryBackoff configures the exponential delay applied to next_attempt_at
// after a failed publish.
func (r *Repository) WithRetryBackoff(base, max time.Duration) *Repository {
	if base > 0 {
		r.retryBase = base
	}
	if max > 0 {
		r.retryMax = max
	}
	return r
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

// ExistsTx reports whether an event of the given type was already queued for the aggregate.
func (r *Repository) ExistsTx(tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	var count int64
	err := tx.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_type = ? AND aggregate_id = ?", eventType, aggregateType, aggregateID).
		Count(&count).Error
	return count > 0, err
}

// FetchUnpublishedForPublish locks a batch of due rows. Postgres skips rows
// held by other publishers; sqlite ignores the locking clause.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	query := tx.Where("published_at IS NULL").
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", r.now().UTC())
	if maxAttempts > 0 {
		query = query.Where("attempt_count < ?", maxAttempts)
	}
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var rows []models.OutboxEvent
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": r.now().UTC(),
			"last_error":   nil,
		}).Error
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	var row models.OutboxEvent
	if err := tx.Select("id", "attempt_count").Where("id = ?", id).First(&row).Error; err != nil {
		return err
	}
	next := r.now().UTC().Add(r.retryDelay(row.AttemptCount + 1))
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":      errorText(cause),
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"next_attempt_at": next,
		}).Error
}

// MarkTerminalTx parks a row so it is never fetched again.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":      errorText(cause),
			"attempt_count":   terminalAttempts,
			"next_attempt_at": nil,
		}).Error
}

// DeletePublishedBefore purges rows that were published before cutoff.
func (r *Repository) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.Where("published_at IS NOT NULL AND published_at < ?", cutoff).Delete(&models.OutboxEvent{})
	return result.RowsAffected, result.Error
}

func (r *Repository) retryDelay(attempt int) time.Duration {
	delay := r.retryBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.retryMax {
			return r.retryMax
		}
	}
	return delay
}

func errorText(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}
