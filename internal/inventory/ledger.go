package inventory

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/shared"
)

// LedgerConfig groups optional settings.
type LedgerConfig struct {
	DepletionOrder DepletionOrder
	Clock          shared.Clock
}

// Ledger owns product stock and price state. Every exported operation runs
// as one exclusive unit under mu.
type Ledger struct {
	mu          sync.Mutex
	products    map[string]Product
	lots        map[string][]Lot
	lotSeq      int64
	order       DepletionOrder
	now         shared.Clock
	logger      *slog.Logger
	integration IntegrationHandler
}

// NewLedger builds an empty Ledger.
func NewLedger(cfg LedgerConfig, logger *slog.Logger, integration IntegrationHandler) *Ledger {
	order := cfg.DepletionOrder
	if order == "" {
		order = OldestFirst
	}
	clock := cfg.Clock
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		products:    make(map[string]Product),
		lots:        make(map[string][]Lot),
		order:       order,
		now:         clock,
		logger:      logger,
		integration: integration,
	}
}

// DepletionOrder reports the configured lot depletion order.
func (l *Ledger) DepletionOrder() DepletionOrder {
	return l.order
}

// UpsertProduct creates a product or edits/renames an existing one. The
// product's lots are reset to a single lot holding the new stock.
func (l *Ledger) UpsertProduct(ctx context.Context, input UpsertInput) (Product, error) {
	name := shared.NormalizeName(input.Name)
	unit := strings.TrimSpace(input.Unit)
	if name == "" {
		return Product{}, shared.Invalid("name", "product name is required")
	}
	if unit == "" {
		return Product{}, shared.Invalid("unit", "unit is required")
	}
	if input.Stock.IsNegative() {
		return Product{}, shared.Invalid("stock", "stock must be >= 0")
	}
	if input.Price.IsNegative() {
		return Product{}, shared.Invalid("price", "price must be >= 0")
	}
	original := shared.NormalizeName(input.Original)

	l.mu.Lock()
	action := CatalogCreated
	if original == "" {
		if _, exists := l.products[name]; exists {
			l.mu.Unlock()
			return Product{}, shared.Invalid("name", "product %q already exists", name)
		}
	} else {
		if _, exists := l.products[original]; !exists {
			l.mu.Unlock()
			return Product{}, &shared.NotFoundError{Kind: "product", Key: original}
		}
		action = CatalogUpdated
		if name != original {
			if _, exists := l.products[name]; exists {
				l.mu.Unlock()
				return Product{}, shared.Invalid("name", "product %q already exists", name)
			}
			delete(l.products, original)
			delete(l.lots, original)
			action = CatalogRenamed
		}
	}
	product := Product{Name: name, Unit: unit, Stock: input.Stock, Price: input.Price}
	l.products[name] = product
	l.resetLotsLocked(product)
	at := l.now()
	l.mu.Unlock()

	l.notify(ctx, CatalogChangedEvent{Action: action, Product: product, Previous: original, At: at})
	return product, nil
}

// RemoveProduct deletes a product and its lots.
func (l *Ledger) RemoveProduct(ctx context.Context, name string) error {
	key := shared.NormalizeName(name)
	l.mu.Lock()
	product, exists := l.products[key]
	if !exists {
		l.mu.Unlock()
		return &shared.NotFoundError{Kind: "product", Key: key}
	}
	delete(l.products, key)
	delete(l.lots, key)
	at := l.now()
	l.mu.Unlock()

	l.notify(ctx, CatalogChangedEvent{Action: CatalogRemoved, Product: product, At: at})
	return nil
}

// Quote validates items against current stock without mutating anything.
func (l *Ledger) Quote(ctx context.Context, items []LineItem) (Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.planLocked(items)
}

// ReserveAndDeplete validates the whole batch, asks approve (when set) to
// accept the subtotal, then decrements stock and depletes lots for every
// line. Any failure leaves every product untouched.
func (l *Ledger) ReserveAndDeplete(ctx context.Context, items []LineItem, approve ApproveFunc) (Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	reservation, err := l.planLocked(items)
	if err != nil {
		return Reservation{}, err
	}
	if approve != nil {
		if err := approve(reservation.Subtotal); err != nil {
			return Reservation{}, err
		}
	}
	for _, line := range reservation.Lines {
		product := l.products[line.Name]
		product.Stock = product.Stock.Sub(line.Quantity)
		l.products[line.Name] = product
		remaining, unfilled := DepleteLots(l.lots[line.Name], line.Quantity, l.order)
		if unfilled.GreaterThan(LotEpsilon) {
			l.logger.Warn("lots out of step with stock",
				slog.String("product", line.Name),
				slog.String("unfilled", unfilled.String()))
		}
		l.lots[line.Name] = remaining
	}
	return reservation, nil
}

func (l *Ledger) planLocked(items []LineItem) (Reservation, error) {
	lines := make([]ReservedLine, 0, len(items))
	totals := make(map[string]decimal.Decimal, len(items))
	var order []string
	for _, item := range items {
		name := shared.NormalizeName(item.Name)
		product, ok := l.products[name]
		if !ok {
			return Reservation{}, &shared.NotFoundError{Kind: "product", Key: name}
		}
		if !item.Quantity.IsPositive() {
			return Reservation{}, shared.Invalid("quantity", "quantity for %s must be > 0", name)
		}
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] = totals[name].Add(item.Quantity)
		lines = append(lines, ReservedLine{
			Name:      name,
			Unit:      product.Unit,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Amount:    shared.Round2(product.Price.Mul(item.Quantity)),
		})
	}
	for _, name := range order {
		product := l.products[name]
		if totals[name].GreaterThan(product.Stock) {
			return Reservation{}, &shared.InsufficientStockError{
				Product:   name,
				Requested: totals[name],
				Available: product.Stock,
			}
		}
	}
	subtotal := decimal.Zero
	for _, item := range items {
		product := l.products[shared.NormalizeName(item.Name)]
		subtotal = subtotal.Add(product.Price.Mul(item.Quantity))
	}
	return Reservation{Lines: lines, Subtotal: shared.Round2(subtotal)}, nil
}

// Get returns a single product.
func (l *Ledger) Get(ctx context.Context, name string) (Product, error) {
	key := shared.NormalizeName(name)
	l.mu.Lock()
	defer l.mu.Unlock()
	product, ok := l.products[key]
	if !ok {
		return Product{}, &shared.NotFoundError{Kind: "product", Key: key}
	}
	return product, nil
}

// ListAll returns every product sorted by name.
func (l *Ledger) ListAll(ctx context.Context) []Product {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked()
}

// Lots returns the product's lots in depletion order.
func (l *Ledger) Lots(ctx context.Context, name string) ([]Lot, error) {
	key := shared.NormalizeName(name)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.products[key]; !ok {
		return nil, &shared.NotFoundError{Kind: "product", Key: key}
	}
	return SortLots(l.lots[key], l.order), nil
}

// Snapshot returns the product table for persistence.
func (l *Ledger) Snapshot() []Product {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked()
}

// Restore replaces all products. Lots are rebuilt as one lot per product.
// Products that UpsertProduct would reject are dropped.
func (l *Ledger) Restore(products []Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products = make(map[string]Product, len(products))
	l.lots = make(map[string][]Lot, len(products))
	for _, p := range products {
		p.Name = shared.NormalizeName(p.Name)
		p.Unit = strings.TrimSpace(p.Unit)
		if p.Name == "" || p.Unit == "" || p.Stock.IsNegative() || p.Price.IsNegative() {
			l.logger.Warn("skipping invalid product on restore",
				slog.String("product", p.Name),
				slog.String("unit", p.Unit),
				slog.String("stock", p.Stock.String()),
				slog.String("price", p.Price.String()))
			continue
		}
		l.products[p.Name] = p
		l.resetLotsLocked(p)
	}
}

func (l *Ledger) sortedLocked() []Product {
	out := make([]Product, 0, len(l.products))
	for _, p := range l.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Product) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (l *Ledger) resetLotsLocked(p Product) {
	if p.Stock.LessThanOrEqual(LotEpsilon) {
		l.lots[p.Name] = nil
		return
	}
	l.lotSeq++
	l.lots[p.Name] = []Lot{{Qty: p.Stock, UnitPrice: p.Price, ReceivedAt: l.now(), Seq: l.lotSeq}}
}

func (l *Ledger) notify(ctx context.Context, evt CatalogChangedEvent) {
	if l.integration == nil {
		return
	}
	if err := l.integration.HandleCatalogChanged(ctx, evt); err != nil {
		l.logger.Warn("catalog post-commit hook", slog.String("product", evt.Product.Name), slog.Any("error", err))
	}
}
