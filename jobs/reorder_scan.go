package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stockroom-ims/stockroom/internal/ledger"
)

// LowStockLister reports stock records at or below their reorder level.
type LowStockLister interface {
	ListBelowReorder(ctx context.Context, limit int) ([]ledger.Record, error)
}

// ReorderScanJob scans the ledger for stock that needs replenishment.
type ReorderScanJob struct {
	lister  LowStockLister
	logger  *slog.Logger
	printer *message.Printer
	limit   int
}

// NewReorderScanJob constructs the scan job with a default record limit.
func NewReorderScanJob(lister LowStockLister, logger *slog.Logger, limit int) *ReorderScanJob {
	if limit <= 0 {
		limit = 200
	}
	return &ReorderScanJob{
		lister:  lister,
		logger:  logger,
		printer: message.NewPrinter(language.English),
		limit:   limit,
	}
}

// Handle processes TaskTypeReorderScan tasks.
func (j *ReorderScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReorderScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = j.limit
	}

	records, err := j.lister.ListBelowReorder(ctx, limit)
	if err != nil {
		j.logger.Error("reorder scan failed", slog.Any("error", err))
		return err
	}

	for _, rec := range records {
		j.logger.Warn("stock below reorder level",
			slog.String("key", rec.Key.String()),
			slog.Int64("available", rec.QuantityAvailable),
			slog.Int64("reorder_level", rec.ReorderLevel),
			slog.String("summary", j.printer.Sprintf("%d units available, reorder at %d", rec.QuantityAvailable, rec.ReorderLevel)),
		)
	}

	j.logger.Info("reorder scan complete", slog.Int("flagged", len(records)), slog.Int("limit", limit))
	return nil
}
