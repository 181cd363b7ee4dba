package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	jobmetrics "github.com/dos-laredos/dos-laredos/internal/jobs"
)

// Reconciler re-evaluates the status of every pallet.
type Reconciler interface {
	Reconcile(ctx context.Context) (inventory.ReconcileReport, error)
}

// PalletReconcileJob corrects pallet statuses that drifted from their ledger
// and reports pallets whose ledger went negative.
type PalletReconcileJob struct {
	Reconciler Reconciler
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewPalletReconcileJob initialises the reconcile handler.
func NewPalletReconcileJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *PalletReconcileJob {
	return &PalletReconcileJob{
		Reconciler: reconciler,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one reconcile pass.
func (j *PalletReconcileJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reconciler == nil {
		return errors.New("pallet reconcile: handler not configured")
	}
	var payload PalletReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.clock()
	tracker := j.Metrics.Track(TaskPalletReconcile)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Time("scheduled_for", payload.ScheduledFor))
	if payload.Reason != "" {
		logger = logger.With(slog.String("reason", payload.Reason))
	}
	logger.Info("starting pallet reconcile")

	report, err := j.Reconciler.Reconcile(ctx)
	if err != nil {
		logger.Error("reconcile failed", slog.Any("error", err))
		return err
	}

	for _, change := range report.Corrected {
		logger.Warn("pallet status corrected",
			slog.Int64("pallet_id", change.PalletID),
			slog.String("from", string(change.From)),
			slog.String("to", string(change.To)),
			slog.Int64("on_hand", change.OnHand),
		)
	}
	for _, id := range report.Negative {
		logger.Error("pallet ledger below zero", slog.Int64("pallet_id", id))
	}
	j.Metrics.AddPalletFindings("corrected", len(report.Corrected))
	j.Metrics.AddPalletFindings("negative", len(report.Negative))

	logger.Info("completed pallet reconcile",
		slog.Int("checked", report.Checked),
		slog.Int("corrected", len(report.Corrected)),
		slog.Int("negative", len(report.Negative)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *PalletReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
