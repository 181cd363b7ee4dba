package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"wrapped", fmt.Errorf("store: %w", &pgconn.PgError{Code: "40001"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestRetryPolicyBackOffHonoursBudget(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	b := policy.backOff(context.Background())

	var waits int
	for b.NextBackOff() >= 0 {
		waits++
		require.LessOrEqual(t, waits, 2)
	}
	require.Equal(t, 2, waits)
}

func TestZeroRetryPolicyUsesDefault(t *testing.T) {
	b := RetryPolicy{}.backOff(context.Background())

	var waits uint64
	for b.NextBackOff() >= 0 {
		waits++
	}
	require.Equal(t, DefaultRetryPolicy.MaxRetries, waits)
}

func TestBackOffStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}.backOff(ctx)
	require.Less(t, b.NextBackOff(), time.Duration(0))
}
