package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	olderThan time.Duration
	err       error
}

func (s *stubPurger) Cleanup(_ context.Context, olderThan time.Duration) error {
	s.olderThan = olderThan
	return s.err
}

func TestIdempotencyCleanupJobPurges(t *testing.T) {
	purger := &stubPurger{}
	job := &IdempotencyCleanupJob{Purger: purger, Retention: 72 * time.Hour}

	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	require.Equal(t, 72*time.Hour, purger.olderThan)
}

func TestIdempotencyCleanupJobErrors(t *testing.T) {
	boom := errors.New("db down")
	job := &IdempotencyCleanupJob{Purger: &stubPurger{err: boom}, Retention: time.Hour}
	require.ErrorIs(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()), boom)

	job = &IdempotencyCleanupJob{Purger: &stubPurger{}}
	require.ErrorIs(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()), asynq.SkipRetry)

	var nilJob *IdempotencyCleanupJob
	require.Error(t, nilJob.Handle(context.Background(), NewIdempotencyCleanupTask()))
}
