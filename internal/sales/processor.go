package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/shared"
)

// InventoryPort abstracts the stock operations a sale needs.
type InventoryPort interface {
	Quote(ctx context.Context, items []inventory.LineItem) (inventory.Reservation, error)
	ReserveAndDeplete(ctx context.Context, items []inventory.LineItem, approve inventory.ApproveFunc) (inventory.Reservation, error)
}

// CreditPort abstracts debt recording for credit sales.
type CreditPort interface {
	AppendEntry(ctx context.Context, customer string, amount decimal.Decimal, at time.Time) (credit.DebtEntry, error)
}

// IdempotencyPort guards against a checkout being submitted twice.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "sales"

// Processor finalizes sales: stock depletion, debt recording and history,
// one sale at a time.
type Processor struct {
	mu          sync.Mutex
	inventory   InventoryPort
	credit      CreditPort
	history     *History
	idempotency IdempotencyPort
	integration IntegrationHandler
	logger      *slog.Logger
	now         shared.Clock
}

// ProcessorConfig groups Processor dependencies. Idempotency, Integration
// and Clock are optional.
type ProcessorConfig struct {
	Inventory   InventoryPort
	Credit      CreditPort
	History     *History
	Idempotency IdempotencyPort
	Integration IntegrationHandler
	Logger      *slog.Logger
	Clock       shared.Clock
}

// NewProcessor builds a Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	history := cfg.History
	if history == nil {
		history = NewHistory()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Processor{
		inventory:   cfg.Inventory,
		credit:      cfg.Credit,
		history:     history,
		idempotency: cfg.Idempotency,
		integration: cfg.Integration,
		logger:      logger,
		now:         clock,
	}
}

// History exposes the sales history.
func (p *Processor) History() *History {
	return p.history
}

// Quote prices items against current stock without mutating anything.
func (p *Processor) Quote(ctx context.Context, items []inventory.LineItem) (inventory.Reservation, error) {
	if len(items) == 0 {
		return inventory.Reservation{}, shared.ErrEmptySale
	}
	return p.inventory.Quote(ctx, items)
}

// FinalizeSale validates and commits one sale. On any error nothing is
// mutated: stock, credit accounts and history are all left as they were.
func (p *Processor) FinalizeSale(ctx context.Context, input FinalizeInput) (Record, error) {
	if len(input.Items) == 0 {
		return Record{}, shared.ErrEmptySale
	}
	switch input.Type {
	case TypeCash, TypeCredit:
	default:
		return Record{}, shared.Invalid("type", "sale type must be Cash or Credit")
	}
	customer := shared.NormalizeName(input.Customer)
	if input.Type == TypeCredit && customer == "" {
		return Record{}, shared.Invalid("customer", "customer name is required for credit sales")
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" && p.idempotency != nil {
		if err := p.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			return Record{}, err
		}
	}

	record, err := p.commit(ctx, input, customer)
	if err != nil {
		if key != "" && p.idempotency != nil {
			if delErr := p.idempotency.Delete(ctx, key); delErr != nil {
				p.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		return Record{}, err
	}

	if p.integration != nil {
		if err := p.integration.HandleSaleCompleted(ctx, SaleCompletedEvent{Record: record}); err != nil {
			p.logger.Warn("sale post-commit hook", slog.String("sale_id", record.ID), slog.Any("error", err))
		}
	}
	return record, nil
}

func (p *Processor) commit(ctx context.Context, input FinalizeInput, customer string) (Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var approve inventory.ApproveFunc
	if input.Type == TypeCash {
		cash := input.CashReceived
		approve = func(subtotal decimal.Decimal) error {
			if cash.LessThan(subtotal) {
				return &shared.InsufficientPaymentError{Required: subtotal, Given: cash}
			}
			return nil
		}
	}
	reservation, err := p.inventory.ReserveAndDeplete(ctx, input.Items, approve)
	if err != nil {
		return Record{}, err
	}

	now := p.now()
	record := Record{
		ID:        uuid.NewString(),
		Items:     reservation.Lines,
		Total:     reservation.Subtotal,
		Type:      input.Type,
		Customer:  customer,
		Timestamp: now,
	}
	if input.Type == TypeCredit {
		entry, err := p.credit.AppendEntry(ctx, customer, reservation.Subtotal, now)
		if err != nil {
			// Unreachable with validated input; stock is already depleted.
			return Record{}, fmt.Errorf("sales: record debt for %s: %w", customer, err)
		}
		record.DebtEntryID = entry.ID
	} else if record.Customer == "" {
		record.Customer = CashCustomerName
	}
	p.history.Append(record)
	return record, nil
}
