package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/jobs"
)

func TestNewJobsCLIRequiresAddr(t *testing.T) {
	_, err := NewJobsCLI("")
	require.Error(t, err)
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	c, err := NewJobsCLI("127.0.0.1:6379")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Trigger(context.Background(), "gl:integrity")
	require.ErrorIs(t, err, jobs.ErrUnknownTask)
}

func TestUnconfiguredCLI(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), jobs.TaskPalletReconcile)
	require.ErrorContains(t, err, "client not configured")

	_, err = (&JobsCLI{}).InspectQueue(context.Background())
	require.ErrorContains(t, err, "inspector not configured")
}
