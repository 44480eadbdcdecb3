package main

import (
	"context"
	"errors"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/oddsvault-backend/pkg/pubsub"
)

// pubsubTopics keeps one Publisher per topic so batching settings and the
// flush goroutines are reused across polls.
type pubsubTopics struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

func newPubSubTopics(client *pubsub.Client) *pubsubTopics {
	return &pubsubTopics{client: client, publishers: make(map[string]*gcppubsub.Publisher)}
}

func (t *pubsubTopics) Ping(ctx context.Context) error {
	return t.client.Ping(ctx)
}

func (t *pubsubTopics) Publish(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub, err := t.publisher(topic)
	if err != nil {
		return err
	}
	_, err = pub.Publish(ctx, msg).Get(ctx)
	return err
}

func (t *pubsubTopics) publisher(topic string) (*gcppubsub.Publisher, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pub, ok := t.publishers[topic]; ok {
		return pub, nil
	}
	pub := t.client.Publisher(topic)
	if pub == nil {
		return nil, errors.New("publisher unavailable for topic " + topic)
	}
	t.publishers[topic] = pub
	return pub, nil
}

// Stop flushes pending messages on every cached publisher.
func (t *pubsubTopics) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, pub := range t.publishers {
		pub.Stop()
		delete(t.publishers, name)
	}
}
