package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReorderScan is the task type for the low-stock reorder scan.
	TaskTypeReorderScan = "inventory:reorder_scan"
)

// ReorderScanPayload bounds how many stock records a single scan reports.
type ReorderScanPayload struct {
	Limit int `json:"limit"`
}

// NewReorderScanTask constructs an Asynq task for the reorder scan.
func NewReorderScanTask(payload ReorderScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReorderScan, data), nil
}
