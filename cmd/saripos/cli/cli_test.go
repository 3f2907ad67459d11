package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/saripos/saripos/internal/persistence"
	"github.com/saripos/saripos/jobs"
)

func newStore(t *testing.T) *persistence.BlobStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return persistence.NewBlobStore(client, "cli", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ===== SNAPSHOT =====

func TestSnapshotExportJSONAndCSV(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, persistence.DefaultSnapshot(now)))

	c := NewSnapshotCLI(store)

	var out bytes.Buffer
	require.NoError(t, c.Export(ctx, &out, "json"))
	var snap persistence.Snapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	require.Len(t, snap.Products, 3)
	require.Len(t, snap.Credit["Josie"], 2)

	out.Reset()
	require.NoError(t, c.Export(ctx, &out, "CSV"))
	require.True(t, strings.HasPrefix(out.String(), "ProductName,Unit,Stock,Price\n"))
	require.Contains(t, out.String(), "Sardines,pc,50,21.50")
}

func TestSnapshotImportInventoryKeepsCredit(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, persistence.DefaultSnapshot(time.Now())))

	c := NewSnapshotCLI(store)
	n, err := c.ImportInventory(ctx, strings.NewReader("ProductName,Unit,Stock,Price\nrice,kg,25,52\nbroken,kg,x,1\n"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)
	require.Equal(t, "Rice", snap.Products[0].Name)
	require.Contains(t, snap.Credit, "Raymart")
}

// ===== JOBS =====

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func TestJobsTrigger(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, persistence.DefaultSnapshot(time.Now())))

	enq := &recordingEnqueuer{}
	c := &JobsCLI{client: enq, snapshots: store, retention: 48 * time.Hour}

	info, err := c.Trigger(ctx, jobs.TaskIdempotencyCleanup)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskIdempotencyCleanup, info.Type)
	var cleanup jobs.IdempotencyCleanupPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &cleanup))
	require.Equal(t, 48, cleanup.RetentionHours)

	_, err = c.Trigger(ctx, jobs.TaskSnapshotArchive)
	require.NoError(t, err)
	var archive jobs.SnapshotArchivePayload
	require.NoError(t, json.Unmarshal(enq.tasks[1].Payload(), &archive))
	require.Equal(t, "manual", archive.Reason)
	require.Len(t, archive.Snapshot.Products, 3)

	_, err = c.Trigger(ctx, "analytics:warmup")
	require.ErrorContains(t, err, "unsupported job")
}

func TestJobsCLINotConfigured(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), jobs.TaskIdempotencyCleanup)
	require.Error(t, err)
	_, err = (&JobsCLI{}).InspectQueue(context.Background())
	require.Error(t, err)
	_, err = (&JobsCLI{client: &recordingEnqueuer{}}).Trigger(context.Background(), jobs.TaskSnapshotArchive)
	require.ErrorContains(t, err, "snapshot store")
}
