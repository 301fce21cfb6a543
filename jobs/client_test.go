package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestClientEnqueueReorderScan(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	info, err := client.EnqueueReorderScan(context.Background(), ReorderScanPayload{Limit: 25})
	require.NoError(t, err)
	require.Equal(t, TaskTypeReorderScan, info.Type)
	require.Equal(t, QueueDefault, info.Queue)

	var payload ReorderScanPayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	require.Equal(t, 25, payload.Limit)

	// The task is queued, not lost: a second enqueue gets its own id.
	again, err := client.EnqueueReorderScan(context.Background(), ReorderScanPayload{Limit: 10})
	require.NoError(t, err)
	require.NotEqual(t, info.ID, again.ID)
}
