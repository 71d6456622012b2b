package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/voltboard/voltboard/internal/jobs"
)

// OrphanCounter counts memberships whose role reference dangles.
type OrphanCounter interface {
	CountOrphanedMemberships(ctx context.Context, orgID string) (int, error)
}

// OrphanScanJob reports memberships left pointing at deleted roles.
// Those members keep their membership but resolve to an empty
// permission set, so a non-zero count usually means an admin forgot to
// reassign people before deleting a role.
type OrphanScanJob struct {
	Counter OrphanCounter
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewOrphanScanJob initialises the orphan scan handler.
func NewOrphanScanJob(counter OrphanCounter, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrphanScanJob {
	return &OrphanScanJob{Counter: counter, Logger: logger, Metrics: metrics}
}

// Handle executes the orphan scan logic.
func (j *OrphanScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Counter == nil {
		return errors.New("orphan scan: handler not configured")
	}
	var payload OrphanScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OrgID == "" {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskAuditOrphanScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("org_id", payload.OrgID))

	count, err := j.Counter.CountOrphanedMemberships(ctx, payload.OrgID)
	if err != nil {
		resultErr = err
		logger.Error("orphan scan failed", slog.Any("error", err))
		return resultErr
	}
	j.metrics().SetOrphanedMemberships(payload.OrgID, count)

	if count > 0 {
		logger.Warn("memberships with dangling role references",
			slog.Int("count", count),
			slog.Duration("duration", time.Since(start)),
		)
	} else {
		logger.Info("no orphaned memberships",
			slog.Duration("duration", time.Since(start)),
		)
	}
	return resultErr
}

func (j *OrphanScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuditOrphanScan))
	}
	return slog.Default().With(slog.String("job", TaskAuditOrphanScan))
}

func (j *OrphanScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
