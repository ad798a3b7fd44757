package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	c, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Trigger(context.Background(), "ledger:rebuild", "")
	require.ErrorIs(t, err, ErrUnsupportedJob)
}

func TestRunValidatesArguments(t *testing.T) {
	c, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Run(context.Background(), nil)
	require.Error(t, err)
	_, err = c.Run(context.Background(), []string{"trigger"})
	require.Error(t, err)
	_, err = c.Run(context.Background(), []string{"purge"})
	require.Error(t, err)
}

func TestNilCLIIsNotConfigured(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), "reporting:warmup", "")
	require.Error(t, err)
	_, err = c.InspectQueue(context.Background())
	require.Error(t, err)
}
