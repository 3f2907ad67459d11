package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/saripos/saripos/internal/persistence"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotArchive copies a ledger snapshot into PostgreSQL.
	TaskSnapshotArchive = "ledger:snapshot_archive"
	// TaskIdempotencyCleanup purges expired checkout idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// DefaultIdempotencyRetention is how long checkout keys are kept.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// SnapshotArchivePayload carries the snapshot to archive.
type SnapshotArchivePayload struct {
	Snapshot persistence.Snapshot `json:"snapshot"`
	Reason   string               `json:"reason,omitempty"`
}

// NewSnapshotArchiveTask constructs the archive task.
func NewSnapshotArchiveTask(snap persistence.Snapshot, reason string) (*asynq.Task, error) {
	body, err := json.Marshal(SnapshotArchivePayload{Snapshot: snap, Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal snapshot payload: %w", err)
	}
	return asynq.NewTask(TaskSnapshotArchive, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// IdempotencyCleanupPayload sets the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
