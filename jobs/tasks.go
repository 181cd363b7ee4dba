package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPalletReconcile re-derives every pallet status from its ledger.
	TaskPalletReconcile = "pallets:reconcile"
)

// PalletReconcilePayload carries scheduling metadata.
type PalletReconcilePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	Reason       string    `json:"reason,omitempty"`
}

// NewPalletReconcileTask constructs an Asynq task for a reconcile pass.
func NewPalletReconcileTask(at time.Time, reason string) (*asynq.Task, error) {
	body, err := json.Marshal(PalletReconcilePayload{ScheduledFor: at, Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPalletReconcile, body, asynq.Queue(QueueDefault)), nil
}
