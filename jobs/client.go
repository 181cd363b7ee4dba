package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// ErrUnknownTask is returned when a task name cannot be enqueued on demand.
var ErrUnknownTask = fmt.Errorf("%w: unknown job", shared.ErrNotFound)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits fulfillment maintenance tasks to the queue.
type Client struct {
	queue enqueuer
	now   func() time.Time
}

// NewClient constructs a Client backed by redis.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return newClient(asynq.NewClient(redisOpts))
}

func newClient(queue enqueuer) *Client {
	return &Client{queue: queue, now: func() time.Time { return time.Now().UTC() }}
}

// EnqueuePalletReconcile schedules an immediate reconcile pass. Duplicate
// requests within a minute collapse into one task.
func (c *Client) EnqueuePalletReconcile(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	task, err := NewPalletReconcileTask(c.now(), reason)
	if err != nil {
		return nil, err
	}
	return c.queue.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Unique(time.Minute))
}

// EnqueueIdempotencyCleanup schedules an immediate purge of expired keys.
func (c *Client) EnqueueIdempotencyCleanup(ctx context.Context) (*asynq.TaskInfo, error) {
	return c.queue.EnqueueContext(ctx, NewIdempotencyCleanupTask(), asynq.MaxRetry(1), asynq.Unique(time.Minute))
}

// Trigger enqueues a task by its type name.
func (c *Client) Trigger(ctx context.Context, name, reason string) (*asynq.TaskInfo, error) {
	switch name {
	case TaskPalletReconcile:
		return c.EnqueuePalletReconcile(ctx, reason)
	case TaskIdempotencyCleanup:
		return c.EnqueueIdempotencyCleanup(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
}

var _ Triggerer = (*Client)(nil)

// Close releases client resources.
func (c *Client) Close() error {
	return c.queue.Close()
}
