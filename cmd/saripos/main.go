package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saripos/saripos/cmd/saripos/cli"
	"github.com/saripos/saripos/internal/app"
	"github.com/saripos/saripos/internal/events"
	"github.com/saripos/saripos/internal/observability"
	"github.com/saripos/saripos/internal/persistence"
	"github.com/saripos/saripos/internal/platform/cache"
	"github.com/saripos/saripos/internal/platform/db"
	"github.com/saripos/saripos/jobs"
)

const usage = `usage: saripos [command]

commands:
  serve                          run the POS HTTP server (default)
  migrate                        create the archive tables in PostgreSQL
  jobs trigger <task>            enqueue ledger:snapshot_archive or maintenance:idempotency_cleanup
  jobs inspect                   print default queue counters
  jobs scheduled [-n size]       list scheduled tasks
  snapshot export [-format json|csv]
  snapshot import <file.csv>     replace the stored catalog
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "jobs":
		err = runJobs(ctx, cfg, logger, args)
	case "snapshot":
		err = runSnapshot(ctx, cfg, logger, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(command+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Warn("postgres unavailable, audit and idempotency disabled", slog.Any("error", err))
			pool = nil
		} else {
			defer pool.Close()
			if err := persistence.NewArchiveStore(pool).EnsureSchema(ctx); err != nil {
				return err
			}
		}
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	var publisher events.Publisher = events.Nop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := events.NewProducer(events.NewKafkaWriter(brokers, cfg.KafkaTopic), cfg.KafkaBuffer, logger)
		producer.Start(ctx)
		defer producer.Close()
		publisher = producer
		logger.Info("publishing ledger events", slog.Any("brokers", brokers), slog.String("topic", cfg.KafkaTopic))
	}

	services := app.NewServices(cfg, logger, app.Infra{
		Redis:     redisClient,
		Pool:      pool,
		Jobs:      jobClient,
		Inspector: inspector,
		Publisher: publisher,
		Metrics:   metrics,
	})
	if err := services.Restore(ctx, cfg); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      services.Router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	if _, err := services.Persister.Save(shutdownCtx); err != nil {
		logger.Error("final snapshot", slog.Any("error", err))
	}
	return nil
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 1})
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := persistence.NewArchiveStore(pool).EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info("archive schema ready")
	return nil
}

func openBlobStore(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*persistence.BlobStore, func(), error) {
	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	return persistence.NewBlobStore(client, cfg.SnapshotPrefix, logger), func() { _ = client.Close() }, nil
}

func runJobs(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	store, closeStore, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr, store, cfg.IdempotencyRetention)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs trigger: task name required")
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "inspect":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	case "scheduled":
		fs := flag.NewFlagSet("jobs scheduled", flag.ContinueOnError)
		size := fs.Int("n", 10, "page size")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		tasks, err := jobsCLI.ListScheduled(ctx, *size)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			fmt.Printf("%s %s next=%s\n", task.ID, task.Type, task.NextProcessAt.Format(time.RFC3339))
		}
	default:
		return fmt.Errorf("jobs: unknown subcommand %q", args[0])
	}
	return nil
}

func runSnapshot(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	store, closeStore, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	snapshots := cli.NewSnapshotCLI(store)

	switch args[0] {
	case "export":
		fs := flag.NewFlagSet("snapshot export", flag.ContinueOnError)
		format := fs.String("format", "json", "json or csv")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return snapshots.Export(ctx, os.Stdout, *format)
	case "import":
		if len(args) < 2 {
			return errors.New("snapshot import: csv file required")
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := snapshots.ImportInventory(ctx, f)
		if err != nil {
			return err
		}
		logger.Info("catalog imported", slog.Int("products", n))
		return nil
	default:
		return fmt.Errorf("snapshot: unknown subcommand %q", args[0])
	}
}
