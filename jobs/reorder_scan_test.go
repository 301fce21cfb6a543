package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-ims/stockroom/internal/ledger"
)

type fakeLister struct {
	records   []ledger.Record
	err       error
	lastLimit int
}

func (l *fakeLister) ListBelowReorder(_ context.Context, limit int) ([]ledger.Record, error) {
	l.lastLimit = limit
	if l.err != nil {
		return nil, l.err
	}
	if limit > 0 && len(l.records) > limit {
		return l.records[:limit], nil
	}
	return l.records, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustTask(t *testing.T, payload ReorderScanPayload) *asynq.Task {
	t.Helper()
	task, err := NewReorderScanTask(payload)
	require.NoError(t, err)
	return task
}

func TestReorderScanReportsLowStock(t *testing.T) {
	lister := &fakeLister{records: []ledger.Record{
		{Key: ledger.Key{ProductID: 1}, QuantityAvailable: 2, ReorderLevel: 5},
		{Key: ledger.Key{ProductID: 2}, QuantityAvailable: 0, ReorderLevel: 10},
	}}
	job := NewReorderScanJob(lister, discardLogger(), 100)

	err := job.Handle(context.Background(), mustTask(t, ReorderScanPayload{Limit: 50}))
	require.NoError(t, err)
	require.Equal(t, 50, lister.lastLimit)
}

func TestReorderScanUsesDefaultLimit(t *testing.T) {
	lister := &fakeLister{}
	job := NewReorderScanJob(lister, discardLogger(), 0)

	err := job.Handle(context.Background(), mustTask(t, ReorderScanPayload{}))
	require.NoError(t, err)
	require.Equal(t, 200, lister.lastLimit)
}

func TestReorderScanPropagatesListerError(t *testing.T) {
	lister := &fakeLister{err: errors.New("database unavailable")}
	job := NewReorderScanJob(lister, discardLogger(), 10)

	err := job.Handle(context.Background(), mustTask(t, ReorderScanPayload{}))
	require.Error(t, err)
}

func TestReorderScanSkipsRetryOnBadPayload(t *testing.T) {
	job := NewReorderScanJob(&fakeLister{}, discardLogger(), 10)
	task := asynq.NewTask(TaskTypeReorderScan, []byte("not json"))

	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
