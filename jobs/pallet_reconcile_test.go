package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	jobmetrics "github.com/dos-laredos/dos-laredos/internal/jobs"
)

type stubReconciler struct {
	report inventory.ReconcileReport
	err    error
	calls  int
}

func (s *stubReconciler) Reconcile(context.Context) (inventory.ReconcileReport, error) {
	s.calls++
	return s.report, s.err
}

func TestPalletReconcileJobRunsPass(t *testing.T) {
	rec := &stubReconciler{report: inventory.ReconcileReport{
		Checked: 3,
		Corrected: []inventory.StatusChange{
			{PalletID: 7, From: inventory.StatusActive, To: inventory.StatusDepleted},
		},
		Negative: []int64{9},
	}}
	job := NewPalletReconcileJob(rec, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewPalletReconcileTask(time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC), "nightly")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, rec.calls)
}

func TestPalletReconcileJobPropagatesFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewPalletReconcileJob(&stubReconciler{err: boom}, nil, nil)

	task, err := NewPalletReconcileTask(time.Now(), "")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestPalletReconcileJobSkipsBadPayload(t *testing.T) {
	rec := &stubReconciler{}
	job := NewPalletReconcileJob(rec, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskPalletReconcile, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, rec.calls)
}
