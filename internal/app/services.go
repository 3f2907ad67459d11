package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/events"
	"github.com/saripos/saripos/internal/integration"
	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/observability"
	"github.com/saripos/saripos/internal/persistence"
	"github.com/saripos/saripos/internal/sales"
	"github.com/saripos/saripos/internal/shared"
	"github.com/saripos/saripos/jobs"
)

// Infra carries the external clients. Pool, Jobs, Inspector and Publisher
// are optional; missing ones switch off the matching side effect.
type Infra struct {
	Redis     *redis.Client
	Pool      *pgxpool.Pool
	Jobs      *jobs.Client
	Inspector *asynq.Inspector
	Publisher events.Publisher
	Metrics   *observability.Metrics
	Clock     shared.Clock
}

// Services is the assembled POS: ledgers, processors, hooks and router.
type Services struct {
	Inventory *inventory.Ledger
	Credit    *credit.Ledger
	Allocator *credit.Allocator
	Processor *sales.Processor
	Cart      *sales.Cart
	Persister *persistence.Persister
	Hooks     *integration.Hooks
	Router    http.Handler
}

// NewServices wires the ledgers to persistence and the HTTP surface.
func NewServices(cfg *Config, logger *slog.Logger, infra Infra) *Services {
	clock := shared.MonotonicClock(infra.Clock)

	var persister *persistence.Persister
	hookCfg := integration.Config{
		Snapshots: integration.SnapshotSaverFunc(func(ctx context.Context) (persistence.Snapshot, error) {
			return persister.Save(ctx)
		}),
		Publisher: infra.Publisher,
		Logger:    logger,
	}
	if infra.Metrics != nil {
		hookCfg.Metrics = infra.Metrics
	}
	if infra.Jobs != nil {
		hookCfg.Archive = infra.Jobs
	}
	var idempotency sales.IdempotencyPort
	if infra.Pool != nil {
		hookCfg.Audit = shared.NewAuditLogger(infra.Pool)
		idempotency = shared.NewIdempotencyStore(infra.Pool)
	}
	hooks := integration.NewHooks(hookCfg)

	stock := inventory.NewLedger(inventory.LedgerConfig{DepletionOrder: cfg.DepletionOrder, Clock: clock}, logger, hooks)
	book := credit.NewLedger(cfg.PaymentOrder, clock)
	allocator := credit.NewAllocator(book, logger, hooks)
	history := sales.NewHistory()
	processor := sales.NewProcessor(sales.ProcessorConfig{
		Inventory:   stock,
		Credit:      book,
		History:     history,
		Idempotency: idempotency,
		Integration: hooks,
		Logger:      logger,
		Clock:       clock,
	})
	cart := sales.NewCart(stock)

	store := persistence.NewBlobStore(infra.Redis, cfg.SnapshotPrefix, logger)
	persister = persistence.NewPersister(persistence.Ledgers{Inventory: stock, Credit: book, History: history}, store, logger, clock)

	var jobHandler *jobs.Handler
	if infra.Inspector != nil {
		jobHandler = jobs.NewHandler(infra.Inspector, logger)
	}

	router := NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(logger, stock),
		SalesHandler:     sales.NewHandler(logger, processor, cart),
		CreditHandler:    credit.NewHandler(logger, book, allocator),
		JobHandler:       jobHandler,
		Metrics:          infra.Metrics,
		RequestLogging:   !InTestMode(),
	})

	return &Services{
		Inventory: stock,
		Credit:    book,
		Allocator: allocator,
		Processor: processor,
		Cart:      cart,
		Persister: persister,
		Hooks:     hooks,
		Router:    router,
	}
}

// Restore loads the persisted snapshot, seeding defaults per configuration.
func (s *Services) Restore(ctx context.Context, cfg *Config) error {
	_, err := s.Persister.Restore(ctx, cfg.SeedDefaults)
	return err
}
