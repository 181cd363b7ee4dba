package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Locker implements shared.Locker on top of redislock so order and credit
// critical sections hold across every API instance.
type Locker struct {
	client  *redislock.Client
	retries int
	minWait time.Duration
	maxWait time.Duration
}

// NewLocker wraps the redis client. retries bounds how many times a contended
// lock is polled before the caller receives shared.ErrConflict.
func NewLocker(client redis.UniversalClient, retries int) *Locker {
	if retries <= 0 {
		retries = 20
	}
	return &Locker{
		client:  redislock.New(client),
		retries: retries,
		minWait: 20 * time.Millisecond,
		maxWait: 500 * time.Millisecond,
	}
}

// Obtain acquires key for ttl, retrying with exponential backoff.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (shared.Unlocker, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.ExponentialBackoff(l.minWait, l.maxWait), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: lock %s not obtained", shared.ErrConflict, key)
	}
	if err != nil {
		return nil, fmt.Errorf("platform/cache: obtain %s: %w", key, err)
	}
	return lock, nil
}

// Sequence hands out monotonically increasing numbers from a redis counter.
type Sequence struct {
	client redis.UniversalClient
	key    string
}

// NewSequence constructs Sequence backed by key.
func NewSequence(client redis.UniversalClient, key string) *Sequence {
	return &Sequence{client: client, key: key}
}

// Next increments and returns the counter.
func (s *Sequence) Next(ctx context.Context) (int64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("platform/cache: incr %s: %w", s.key, err)
	}
	return n, nil
}
