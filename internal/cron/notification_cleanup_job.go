package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

const notificationRetentionDays = 30

type notificationCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

func NewNotificationCleanupJob(logg *logger.Logger, notifications notificationCleaner, retentionDays int) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if retentionDays <= 0 {
		retentionDays = notificationRetentionDays
	}
	return &notificationCleanupJob{logg: logg, notifications: notifications, retentionDays: retentionDays}, nil
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	notifications notificationCleaner
	retentionDays int
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.notifications.Cleanup(ctx, time.Duration(j.retentionDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"retention_days": j.retentionDays,
		"rows_deleted":   deleted,
	}), "notification cleanup complete")
	return nil
}
