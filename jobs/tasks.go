package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditOrphanScan counts memberships left pointing at deleted roles.
	TaskAuditOrphanScan = "audit:orphan_scan"
)

// OrphanScanPayload scopes an orphan scan to a single org.
type OrphanScanPayload struct {
	OrgID string `json:"org_id"`
}

// NewOrphanScanTask constructs an Asynq task.
func NewOrphanScanTask(payload OrphanScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditOrphanScan, data), nil
}
