package main

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/app"
	"github.com/dos-laredos/dos-laredos/internal/platform/cache"
	"github.com/dos-laredos/dos-laredos/internal/shared"
	_ "github.com/dos-laredos/dos-laredos/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	main()
}

func TestNewLockerFollowsBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.IsType(t, &cache.Locker{}, newLocker(&app.Config{LockBackend: app.LockBackendRedis, LockRetries: 1}, client))
	require.IsType(t, &shared.LocalLocker{}, newLocker(&app.Config{LockBackend: app.LockBackendLocal}, client))
	require.IsType(t, &shared.LocalLocker{}, newLocker(&app.Config{LockBackend: app.LockBackendRedis}, nil))
}
