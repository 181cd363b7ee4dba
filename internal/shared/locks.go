package shared

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// OrderLockKey builds redis keys for order-scoped critical sections.
func OrderLockKey(orderID int64) string {
	return fmt.Sprintf("fulfillment:order:%d:lock", orderID)
}

// CreditLockKey builds redis keys for credit installment posting.
func CreditLockKey(creditID int64) string {
	return fmt.Sprintf("fulfillment:credit:%d:lock", creditID)
}

// Locker obtains short-lived exclusive locks keyed by string.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Unlocker, error)
}

// Unlocker releases a lock obtained from a Locker.
type Unlocker interface {
	Release(ctx context.Context) error
}

// LocalLocker is an in-process Locker used by single-instance deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker constructs LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

// Obtain blocks until the key is free or ctx is done. The ttl is ignored.
func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (Unlocker, error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return localUnlocker{ch: ch}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: lock %s: %v", ErrConflict, key, ctx.Err())
	}
}

type localUnlocker struct {
	ch chan struct{}
}

func (u localUnlocker) Release(context.Context) error {
	select {
	case <-u.ch:
	default:
	}
	return nil
}

// WithLock runs fn while holding key. A nil locker runs fn unguarded.
func WithLock(ctx context.Context, locker Locker, key string, ttl time.Duration, fn func(context.Context) error) error {
	if locker == nil {
		return fn(ctx)
	}
	lock, err := locker.Obtain(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
