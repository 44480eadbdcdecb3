package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

type subscriptionExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// NewSubscriptionExpiryJob flips lapsed active subscriptions to expired. The
// user notification follows from the subscription_expired outbox event that
// ExpireDue queues.
func NewSubscriptionExpiryJob(logg *logger.Logger, subs subscriptionExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if subs == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	return &subscriptionExpiryJob{logg: logg, subs: subs, now: time.Now}, nil
}

type subscriptionExpiryJob struct {
	logg *logger.Logger
	subs subscriptionExpirer
	now  func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	expired, err := j.subs.ExpireDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire subscriptions: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "subscription expiry complete")
	return nil
}
