package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

// runner is a long-lived subscription loop.
type runner interface {
	Run(ctx context.Context) error
}

type dependency struct {
	name string
	ping func(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies []dependency
	Consumers    map[string]runner
}

// Service runs every consumer until one fails or ctx ends. A failing
// consumer cancels the others so the process restarts as a unit.
type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumers map[string]runner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}
	return &Service{logg: params.Logger, deps: params.Dependencies, consumers: params.Consumers}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", dep.name), "worker.dependency_unready", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker dependencies ready")

	g, gctx := errgroup.WithContext(ctx)
	for name, c := range s.consumers {
		g.Go(func() error {
			logCtx := s.logg.WithField(gctx, "consumer", name)
			s.logg.Info(logCtx, "worker.consumer_started")
			err := c.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(logCtx, "worker.consumer_stopped", err)
				return fmt.Errorf("%s: %w", name, err)
			}
			return err
		})
	}
	return g.Wait()
}
