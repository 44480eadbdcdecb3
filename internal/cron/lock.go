package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Minute

// Lock gives one process at a time the right to run a named job.
type Lock interface {
	Acquire(ctx context.Context, job string) (bool, error)
	Release(ctx context.Context, job string) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// RedisLock stores the owning instance id under a per-job key with a TTL so
// a crashed worker cannot hold a job forever.
type RedisLock struct {
	client redisStore
	owner  string
	ttl    time.Duration

	mu   sync.Mutex
	held map[string]bool
}

func NewRedisLock(client redisStore, owner string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if owner == "" {
		return nil, errors.New("lock owner is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, owner: owner, ttl: ttl, held: map[string]bool{}}, nil
}

func (l *RedisLock) key(job string) string {
	return l.client.CacheKey("cron", "lock", job)
}

func (l *RedisLock) Acquire(ctx context.Context, job string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(job), l.owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", job, err)
	}
	if ok {
		l.mu.Lock()
		l.held[job] = true
		l.mu.Unlock()
	}
	return ok, nil
}

// Release deletes the key only while it still names this owner; an expired
// lock taken over by another instance is left alone.
func (l *RedisLock) Release(ctx context.Context, job string) error {
	l.mu.Lock()
	held := l.held[job]
	delete(l.held, job)
	l.mu.Unlock()
	if !held {
		return nil
	}

	value, err := l.client.Get(ctx, l.key(job))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key(job)); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
