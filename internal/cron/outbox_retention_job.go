package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

const outboxRetentionDays = 14

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob drops outbox rows that were published more than
// retentionDays ago. Unpublished and dead-lettered rows are kept.
func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, repo outboxPurger, retentionDays int) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if retentionDays <= 0 {
		retentionDays = outboxRetentionDays
	}
	return &outboxRetentionJob{logg: logg, db: db, repo: repo, retentionDays: retentionDays, now: time.Now}, nil
}

type outboxRetentionJob struct {
	logg          *logger.Logger
	db            txRunner
	repo          outboxPurger
	retentionDays int
	now           func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retentionDays)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "outbox retention complete")
	return nil
}
