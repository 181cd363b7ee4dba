package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

type fakeQueue struct {
	tasks  []*asynq.Task
	opts   [][]asynq.Option
	err    error
	closed bool
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "t-" + task.Type(), Queue: QueueDefault, Type: task.Type()}, nil
}

func (f *fakeQueue) Close() error {
	f.closed = true
	return nil
}

func TestClientTriggerReconcile(t *testing.T) {
	queue := &fakeQueue{}
	client := newClient(queue)
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return at }

	info, err := client.Trigger(context.Background(), TaskPalletReconcile, "manual")
	require.NoError(t, err)
	require.Equal(t, TaskPalletReconcile, info.Type)
	require.Len(t, queue.tasks, 1)

	var payload PalletReconcilePayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	require.True(t, payload.ScheduledFor.Equal(at))
	require.Equal(t, "manual", payload.Reason)
	require.Len(t, queue.opts[0], 2)
}

func TestClientTriggerCleanup(t *testing.T) {
	queue := &fakeQueue{}
	client := newClient(queue)

	_, err := client.Trigger(context.Background(), TaskIdempotencyCleanup, "")
	require.NoError(t, err)
	require.Equal(t, TaskIdempotencyCleanup, queue.tasks[0].Type())

	require.NoError(t, client.Close())
	require.True(t, queue.closed)
}

func TestClientTriggerErrors(t *testing.T) {
	client := newClient(&fakeQueue{})
	_, err := client.Trigger(context.Background(), "gl:integrity", "")
	require.ErrorIs(t, err, ErrUnknownTask)
	require.ErrorIs(t, err, shared.ErrNotFound)

	boom := errors.New("redis down")
	client = newClient(&fakeQueue{err: boom})
	_, err = client.EnqueuePalletReconcile(context.Background(), "manual")
	require.ErrorIs(t, err, boom)
}
