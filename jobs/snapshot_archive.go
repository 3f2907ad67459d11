package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/saripos/saripos/internal/jobs"
	"github.com/saripos/saripos/internal/persistence"
)

// ArchiveWriter persists a snapshot. *persistence.ArchiveStore satisfies it.
type ArchiveWriter interface {
	Save(ctx context.Context, snap persistence.Snapshot) error
}

// SnapshotArchiveJob writes queued snapshots into the archive database.
type SnapshotArchiveJob struct {
	Store   ArchiveWriter
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSnapshotArchiveJob initialises the archive handler.
func NewSnapshotArchiveJob(store ArchiveWriter, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotArchiveJob {
	return &SnapshotArchiveJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the archive write.
func (j *SnapshotArchiveJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("snapshot archive: handler not configured")
	}
	var payload SnapshotArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("snapshot archive: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskSnapshotArchive)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(
		slog.String("reason", payload.Reason),
		slog.Time("saved_at", payload.Snapshot.SavedAt),
	)
	if err := j.Store.Save(ctx, payload.Snapshot); err != nil {
		logger.Error("archive snapshot failed", slog.Any("error", err))
		return err
	}
	j.Metrics.SetArchivedAt(j.clock())
	logger.Info("archived snapshot",
		slog.Int("products", len(payload.Snapshot.Products)),
		slog.Int("customers", len(payload.Snapshot.Credit)),
		slog.Int("sales", len(payload.Snapshot.Sales)))
	return nil
}

func (j *SnapshotArchiveJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
