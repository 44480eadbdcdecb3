package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

const maxDLQErrorLen = 1024

// ErrDeadLetterNotFound is returned by Replay for an unknown dead letter.
var ErrDeadLetterNotFound = errors.New("dead letter not found")

// DLQRepository keeps a copy of every row the publisher gave up on.
type DLQRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db, now: time.Now}
}

// Park copies event into outbox_dlq inside tx.
func (r *DLQRepository) Park(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		AttemptCount:  event.AttemptCount,
		FailedAt:      r.now().UTC(),
	}
	if cause != nil {
		msg := cause.Error()
		if len(msg) > maxDLQErrorLen {
			msg = msg[:maxDLQErrorLen]
		}
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// List pages dead letters newest first by failed_at.
func (r *DLQRepository) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.OutboxDLQ, error) {
	q := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	var rows []models.OutboxDLQ
	err := q.Scopes(pagination.Keyset("failed_at", cursor, limit)).Find(&rows).Error
	return rows, err
}

// Replay removes a dead letter and makes its outbox row eligible for the
// next publisher pass.
func (r *DLQRepository) Replay(ctx context.Context, id uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeadLetterNotFound
			}
			return err
		}
		now := r.now().UTC()
		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", entry.EventID).
			Updates(map[string]any{
				"attempt_count":   0,
				"next_attempt_at": now,
				"last_error":      nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDeadLetterNotFound
		}
		return tx.Delete(&models.OutboxDLQ{}, "id = ?", entry.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
