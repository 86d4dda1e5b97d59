package ledger

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// Locker serializes mutations of a single table.
type Locker interface {
	Lock(ctx context.Context, table int) (unlock func(), err error)
}

// LocalLocker holds one mutex per table for a single process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[int]*sync.Mutex)}
}

func (l *LocalLocker) Lock(_ context.Context, table int) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[table]
	if !ok {
		m = &sync.Mutex{}
		l.locks[table] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

// RedisLocker serializes a table across replicas sharing one backing store.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

func NewRedisLocker(client *redislock.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.ExponentialBackoff(10*time.Millisecond, 200*time.Millisecond), 50),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, table int) (func(), error) {
	lock, err := l.client.Obtain(ctx, "orderagent:table:"+strconv.Itoa(table), l.ttl, &redislock.Options{
		RetryStrategy: l.retry,
	})
	if err != nil {
		return nil, fmt.Errorf("lock table %d: %w", table, err)
	}

	return func() {
		// Release with a fresh context: the caller's may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = lock.Release(ctx)
	}, nil
}
