package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 5 * time.Minute

// Lock keeps sweep cycles from overlapping.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, owner string) (bool, error)
}

// RedisLock is a TTL lease shared by every sweeper instance. Each Acquire uses a
// fresh owner token, so a release after the lease lapsed cannot drop another
// instance's hold.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	owner string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("cron: lock store is required")
	case key == "":
		return nil, errors.New("cron: lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.TryLock(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("cron: acquire %s: %w", l.key, err)
	}
	if won {
		l.mu.Lock()
		l.owner = token
		l.mu.Unlock()
	}
	return won, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.owner
	l.owner = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	if _, err := l.store.Unlock(ctx, l.key, token); err != nil {
		return fmt.Errorf("cron: release %s: %w", l.key, err)
	}
	return nil
}

// LocalLock guards a single process when no Redis endpoint is configured.
type LocalLock struct {
	mu sync.Mutex
}

func NewLocalLock() *LocalLock { return &LocalLock{} }

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

// Release is only called after a successful Acquire.
func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
