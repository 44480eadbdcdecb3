package chat

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
)

// Repository persists chat lines. A conversation is keyed by the user_id of
// its non-admin participant.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, msg *models.Message) error
	History(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error)
	CountUnreadFromUsers(ctx context.Context) (int64, error)
	Conversations(ctx context.Context) ([]Conversation, error)
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

func (r *repositoryImpl) Create(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// History returns the newest limit lines of a conversation in chronological
// order.
func (r *repositoryImpl) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	var rows []models.Message
	err := r.db.WithContext(ctx).
		Where("user_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// MarkRead flags every unread line in the conversation written by someone
// other than the viewer.
func (r *repositoryImpl) MarkRead(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("user_id = ? AND sender_id <> ? AND read = ?", conversationID, viewerID, false).
		UpdateColumn("read", true)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CountUnread(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("user_id = ? AND sender_id <> ? AND read = ?", conversationID, viewerID, false).
		Count(&count).Error
	return count, err
}

// CountUnreadFromUsers counts unread lines written by conversation owners
// across every conversation.
func (r *repositoryImpl) CountUnreadFromUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("sender_id = user_id AND read = ?", false).
		Count(&count).Error
	return count, err
}

type conversationAggregate struct {
	UserID      uuid.UUID
	Email       string
	FullName    string
	UnreadCount int64
}

// Conversations lists one row per conversation, newest activity first.
// UnreadCount counts unread lines written by the owner.
func (r *repositoryImpl) Conversations(ctx context.Context) ([]Conversation, error) {
	var aggregates []conversationAggregate
	err := r.db.WithContext(ctx).
		Table("messages").
		Select(`messages.user_id AS user_id,
			COALESCE(users.email, '') AS email,
			COALESCE(users.full_name, '') AS full_name,
			SUM(CASE WHEN messages.read = ? AND messages.sender_id = messages.user_id THEN 1 ELSE 0 END) AS unread_count`, false).
		Joins("LEFT JOIN users ON users.id = messages.user_id").
		Group("messages.user_id, users.email, users.full_name").
		Scan(&aggregates).Error
	if err != nil {
		return nil, err
	}

	var latest []models.Message
	err = r.db.WithContext(ctx).
		Raw(`SELECT m.* FROM messages m
			WHERE m.created_at = (SELECT MAX(m2.created_at) FROM messages m2 WHERE m2.user_id = m.user_id)`).
		Scan(&latest).Error
	if err != nil {
		return nil, err
	}
	lastByUser := make(map[uuid.UUID]models.Message, len(latest))
	for _, msg := range latest {
		lastByUser[msg.UserID] = msg
	}

	out := make([]Conversation, 0, len(aggregates))
	for _, agg := range aggregates {
		conv := Conversation{
			UserID:      agg.UserID,
			Email:       agg.Email,
			FullName:    agg.FullName,
			UnreadCount: agg.UnreadCount,
		}
		if last, ok := lastByUser[agg.UserID]; ok {
			msg := last
			conv.LastMessage = &msg
		}
		out = append(out, conv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastAt(out[i]).After(lastAt(out[j]))
	})
	return out, nil
}
