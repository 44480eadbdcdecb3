package stats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

// Counter returns a single dashboard figure.
type Counter func(ctx context.Context) (int64, error)

// Dashboard is the admin overview payload.
type Dashboard struct {
	Users               int64     `json:"users"`
	ActiveSubscriptions int64     `json:"active_subscriptions"`
	PendingTransactions int64     `json:"pending_transactions"`
	UnreadMessages      int64     `json:"unread_messages"`
	PredictionsToday    int64     `json:"predictions_today"`
	GeneratedAt         time.Time `json:"generated_at"`
}

type Sources struct {
	Users               Counter
	ActiveSubscriptions Counter
	PendingTransactions Counter
	UnreadMessages      Counter
	PredictionsForDay   func(ctx context.Context, day time.Time) (int64, error)
}

type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type service struct {
	src Sources
	now func() time.Time
}

func NewService(src Sources) (Service, error) {
	switch {
	case src.Users == nil:
		return nil, fmt.Errorf("users counter required")
	case src.ActiveSubscriptions == nil:
		return nil, fmt.Errorf("subscriptions counter required")
	case src.PendingTransactions == nil:
		return nil, fmt.Errorf("transactions counter required")
	case src.UnreadMessages == nil:
		return nil, fmt.Errorf("chat counter required")
	case src.PredictionsForDay == nil:
		return nil, fmt.Errorf("predictions counter required")
	}
	return &service{src: src, now: time.Now}, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now().UTC()
	out := &Dashboard{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	run := func(dst *int64, name string, fn Counter) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return fmt.Errorf("count %s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}
	run(&out.Users, "users", s.src.Users)
	run(&out.ActiveSubscriptions, "subscriptions", s.src.ActiveSubscriptions)
	run(&out.PendingTransactions, "transactions", s.src.PendingTransactions)
	run(&out.UnreadMessages, "messages", s.src.UnreadMessages)
	run(&out.PredictionsToday, "predictions", func(ctx context.Context) (int64, error) {
		return s.src.PredictionsForDay(ctx, now)
	})

	if err := g.Wait(); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dashboard stats")
	}
	return out, nil
}
