package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalLockerExcludesSecondHolder(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	first, err := locker.Obtain(ctx, OrderLockKey(7), time.Second)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locker.Obtain(waitCtx, OrderLockKey(7), time.Second)
	require.ErrorIs(t, err, ErrConflict)

	other, err := locker.Obtain(ctx, OrderLockKey(8), time.Second)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	again, err := locker.Obtain(ctx, OrderLockKey(7), time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestWithLockNilLockerRunsUnguarded(t *testing.T) {
	called := false
	err := WithLock(context.Background(), nil, "k", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker := NewLocalLocker()
	boom := errors.New("boom")
	err := WithLock(context.Background(), locker, CreditLockKey(1), time.Second, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	lock, err := locker.Obtain(context.Background(), CreditLockKey(1), time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(context.Background()))
}

func TestParseIdempotencyKey(t *testing.T) {
	key, err := ParseIdempotencyKey("")
	require.NoError(t, err)
	require.Empty(t, key)

	key, err = ParseIdempotencyKey("5F0B7C4E-8E0B-4C39-9D7A-0C1A2B3C4D5E")
	require.NoError(t, err)
	require.Equal(t, "5f0b7c4e-8e0b-4c39-9d7a-0c1a2b3c4d5e", key)

	_, err = ParseIdempotencyKey("not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidIdempotencyKey)
	require.ErrorIs(t, err, ErrValidation)
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	require.False(t, ok)

	ctx := ContextWithActor(context.Background(), Actor{ID: 3, Role: "warehouse"})
	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "user:3(warehouse)", actor.String())
	require.Equal(t, "user:9", Actor{ID: 9}.String())
}
