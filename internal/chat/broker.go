package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

// Broker fans conversation events out to every API instance.
type Broker interface {
	Publish(ctx context.Context, conversationID uuid.UUID, event Event) error
	Subscribe(ctx context.Context, conversationID uuid.UUID) (Subscription, error)
}

// Subscription delivers events for one conversation until closed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

type redisPubSub interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) *goredis.PubSub
	ChatChannel(userID string) string
}

// RedisBroker uses Redis pub/sub channels named after the conversation.
type RedisBroker struct {
	client redisPubSub
	logg   *logger.Logger
}

func NewRedisBroker(client redisPubSub, logg *logger.Logger) (*RedisBroker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &RedisBroker{client: client, logg: logg}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, conversationID uuid.UUID, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode chat event: %w", err)
	}
	return b.client.Publish(ctx, b.client.ChatChannel(conversationID.String()), payload)
}

func (b *RedisBroker) Subscribe(ctx context.Context, conversationID uuid.UUID) (Subscription, error) {
	ps := b.client.Subscribe(ctx, b.client.ChatChannel(conversationID.String()))
	if ps == nil {
		return nil, fmt.Errorf("redis pub/sub unavailable")
	}
	// Wait for the subscription confirmation so no publish is missed
	// between here and the sync frame.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe chat channel: %w", err)
	}

	sub := &redisSubscription{ps: ps, events: make(chan Event, 16)}
	go sub.pump(ctx, b.logg)
	return sub, nil
}

type redisSubscription struct {
	ps     *goredis.PubSub
	events chan Event
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() { err = s.ps.Close() })
	return err
}

func (s *redisSubscription) pump(ctx context.Context, logg *logger.Logger) {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logg.Warn(logg.WithField(ctx, "channel", msg.Channel), "chat.bad_event")
			continue
		}
		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
}
