package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/events"
	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/persistence"
	"github.com/saripos/saripos/internal/sales"
	"github.com/saripos/saripos/internal/shared"
)

// SnapshotSaver persists the current ledger state.
type SnapshotSaver interface {
	Save(ctx context.Context) (persistence.Snapshot, error)
}

// ArchiveEnqueuer schedules a snapshot for the archive database.
type ArchiveEnqueuer interface {
	EnqueueSnapshotArchive(ctx context.Context, snap persistence.Snapshot, reason string) (*asynq.TaskInfo, error)
}

// AuditRecorder writes audit rows.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics receives domain counters.
type Metrics interface {
	ObserveSale(saleType string, total decimal.Decimal)
	ObservePayment(mode string)
	SnapshotFailed()
	PublishFailed()
}

// Config collects the hook collaborators. Nil collaborators are skipped.
type Config struct {
	Snapshots SnapshotSaver
	Archive   ArchiveEnqueuer
	Audit     AuditRecorder
	Publisher events.Publisher
	Metrics   Metrics
	Logger    *slog.Logger
}

// Hooks runs the side effects of committed ledger changes: snapshot save,
// archive enqueue, audit row, outbound event and counters.
type Hooks struct {
	cfg Config
}

// NewHooks constructs integration hooks.
func NewHooks(cfg Config) *Hooks {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Hooks{cfg: cfg}
}

// HandleSaleCompleted persists and publishes a finalized sale.
func (h *Hooks) HandleSaleCompleted(ctx context.Context, evt sales.SaleCompletedEvent) error {
	if h == nil {
		return nil
	}
	rec := evt.Record
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.ObserveSale(string(rec.Type), rec.Total)
	}
	audit := shared.AuditLog{
		Terminal: shared.TerminalFromContext(ctx),
		Action:   "sale.finalized",
		Entity:   "sale",
		EntityID: rec.ID,
		Meta: map[string]any{
			"type":     rec.Type,
			"customer": rec.Customer,
			"total":    rec.Total.StringFixed(2),
			"lines":    len(rec.Items),
		},
		At: rec.Timestamp,
	}
	env, err := events.NewEnvelope(events.EventSaleCompleted, rec.ID, salePayload(rec), rec.Timestamp)
	return h.afterCommit(ctx, "sale", audit, env, err)
}

// HandlePaymentRecorded persists and publishes an accepted payment.
func (h *Hooks) HandlePaymentRecorded(ctx context.Context, evt credit.PaymentRecordedEvent) error {
	if h == nil {
		return nil
	}
	r := evt.Receipt
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.ObservePayment(string(r.Mode))
	}
	entryID := r.Customer
	if len(r.Allocations) == 1 {
		entryID = r.Allocations[0].EntryID
	}
	audit := shared.AuditLog{
		Terminal: shared.TerminalFromContext(ctx),
		Action:   "credit.payment",
		Entity:   "credit_account",
		EntityID: entryID,
		Meta: map[string]any{
			"customer":    r.Customer,
			"mode":        r.Mode,
			"amount":      r.Amount.StringFixed(2),
			"balance":     r.Balance.StringFixed(2),
			"allocations": len(r.Allocations),
		},
		At: r.RecordedAt,
	}
	env, err := events.NewEnvelope(events.EventPaymentRecorded, r.Customer, paymentPayload(r), r.RecordedAt)
	return h.afterCommit(ctx, "payment", audit, env, err)
}

// HandleCatalogChanged persists and publishes a product change.
func (h *Hooks) HandleCatalogChanged(ctx context.Context, evt inventory.CatalogChangedEvent) error {
	if h == nil {
		return nil
	}
	audit := shared.AuditLog{
		Terminal: shared.TerminalFromContext(ctx),
		Action:   "product." + string(evt.Action),
		Entity:   "product",
		EntityID: evt.Product.Name,
		Meta: map[string]any{
			"previous": evt.Previous,
			"stock":    evt.Product.Stock.String(),
			"price":    evt.Product.Price.StringFixed(2),
		},
		At: evt.At,
	}
	env, err := events.NewEnvelope(events.EventCatalogChanged, evt.Product.Name, catalogPayload(evt), evt.At)
	return h.afterCommit(ctx, "catalog", audit, env, err)
}

func (h *Hooks) afterCommit(ctx context.Context, reason string, audit shared.AuditLog, env events.Envelope, envErr error) error {
	var errs []error

	if h.cfg.Snapshots != nil {
		snap, err := h.cfg.Snapshots.Save(ctx)
		if err != nil {
			if h.cfg.Metrics != nil {
				h.cfg.Metrics.SnapshotFailed()
			}
			errs = append(errs, fmt.Errorf("integration: save snapshot: %w", err))
		} else if h.cfg.Archive != nil && !snap.SavedAt.IsZero() {
			if _, err := h.cfg.Archive.EnqueueSnapshotArchive(ctx, snap, reason); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
				errs = append(errs, fmt.Errorf("integration: enqueue archive: %w", err))
			}
		}
	}

	if h.cfg.Audit != nil {
		if err := h.cfg.Audit.Record(ctx, audit); err != nil {
			errs = append(errs, fmt.Errorf("integration: audit %s: %w", audit.Action, err))
		}
	}

	if h.cfg.Publisher != nil {
		err := envErr
		if err == nil {
			err = h.cfg.Publisher.Publish(ctx, env)
		}
		if err != nil {
			if h.cfg.Metrics != nil {
				h.cfg.Metrics.PublishFailed()
			}
			errs = append(errs, fmt.Errorf("integration: publish %s: %w", env.EventType, err))
		}
	}

	return errors.Join(errs...)
}

// SnapshotSaverFunc adapts a function to SnapshotSaver.
type SnapshotSaverFunc func(ctx context.Context) (persistence.Snapshot, error)

// Save implements SnapshotSaver.
func (f SnapshotSaverFunc) Save(ctx context.Context) (persistence.Snapshot, error) {
	return f(ctx)
}
