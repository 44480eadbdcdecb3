package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestServiceStopsAllConsumersWhenOneFails(t *testing.T) {
	canceled := make(chan struct{})
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumers: map[string]runner{
			"email": runnerFunc(func(context.Context) error { return errors.New("subscription deleted") }),
			"domain": runnerFunc(func(ctx context.Context) error {
				<-ctx.Done()
				close(canceled)
				return ctx.Err()
			}),
		},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.ErrorContains(t, err, "email: subscription deleted")
	<-canceled
}

func TestServiceFailsFastOnUnreadyDependency(t *testing.T) {
	started := false
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Dependencies: []dependency{
			{name: "redis", ping: func(context.Context) error { return errors.New("refused") }},
		},
		Consumers: map[string]runner{
			"email": runnerFunc(func(context.Context) error { started = true; return nil }),
		},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.ErrorContains(t, err, "redis ping failed")
	require.False(t, started)
}

func TestNewServiceRequiresConsumers(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}
