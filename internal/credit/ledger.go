package credit

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/shared"
)

// Ledger holds customer credit accounts: customer name to the entries in
// insertion order. Entries are never merged or deleted.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string][]DebtEntry
	seq      int64
	order    PaymentOrder
	now      shared.Clock
}

// NewLedger builds an empty Ledger. The order is the PAYMENT_ORDER used for
// pending-entry views and by the allocator.
func NewLedger(order PaymentOrder, clock shared.Clock) *Ledger {
	if order == "" {
		order = OldestFirst
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Ledger{accounts: make(map[string][]DebtEntry), order: order, now: clock}
}

// PaymentOrder reports the configured allocation order.
func (l *Ledger) PaymentOrder() PaymentOrder {
	return l.order
}

// AppendEntry records a new pending debt for customer. A zero at uses the
// ledger clock.
func (l *Ledger) AppendEntry(ctx context.Context, customer string, amount decimal.Decimal, at time.Time) (DebtEntry, error) {
	name := shared.NormalizeName(customer)
	if name == "" {
		return DebtEntry{}, shared.Invalid("customer", "customer name is required")
	}
	if amount.IsNegative() {
		return DebtEntry{}, shared.Invalid("amount", "amount must be >= 0")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if at.IsZero() {
		at = l.now()
	}
	l.seq++
	entry := DebtEntry{
		ID:        uuid.NewString(),
		Seq:       l.seq,
		Timestamp: at,
		Amount:    shared.Round2(amount),
		Status:    StatusPending,
	}
	l.accounts[name] = append(l.accounts[name], entry)
	return entry, nil
}

// PendingBalance sums the pending entries of customer. Unknown customers owe nothing.
func (l *Ledger) PendingBalance(ctx context.Context, customer string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return pendingBalance(l.accounts[shared.NormalizeName(customer)])
}

// SortedEntries returns every entry of customer, paid and pending, in order.
func (l *Ledger) SortedEntries(ctx context.Context, customer string, order PaymentOrder) ([]DebtEntry, error) {
	name := shared.NormalizeName(customer)
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, ok := l.accounts[name]
	if !ok {
		return nil, &shared.NotFoundError{Kind: "customer", Key: name}
	}
	return SortEntries(entries, order), nil
}

// PendingEntries lists the pending entries of customer in payment order. Its
// positions are the ones PayAgainstEntry accepts.
func (l *Ledger) PendingEntries(ctx context.Context, customer string) ([]DebtEntry, error) {
	name := shared.NormalizeName(customer)
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, ok := l.accounts[name]
	if !ok {
		return nil, &shared.NotFoundError{Kind: "customer", Key: name}
	}
	idx := pendingIndices(entries, l.order)
	out := make([]DebtEntry, 0, len(idx))
	for _, i := range idx {
		out = append(out, entries[i])
	}
	return out, nil
}

// ListCustomersWithHistory returns sorted names of customers with at least one entry.
func (l *Ledger) ListCustomersWithHistory(ctx context.Context) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.accounts))
	for name, entries := range l.accounts {
		if len(entries) > 0 {
			names = append(names, name)
		}
	}
	slices.SortFunc(names, strings.Compare)
	return names
}

// Summary aggregates counts and balance for customer.
func (l *Ledger) Summary(ctx context.Context, customer string) (Summary, error) {
	name := shared.NormalizeName(customer)
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, ok := l.accounts[name]
	if !ok {
		return Summary{}, &shared.NotFoundError{Kind: "customer", Key: name}
	}
	summary := Summary{Customer: name, Entries: len(entries), Balance: pendingBalance(entries)}
	for _, e := range entries {
		if e.Pending() {
			summary.PendingCount++
		} else {
			summary.PaidCount++
		}
	}
	return summary, nil
}

// Outstanding totals pending credit across all customers.
func (l *Ledger) Outstanding(ctx context.Context) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, entries := range l.accounts {
		total = total.Add(pendingBalance(entries))
	}
	return shared.Round2(total)
}

// Snapshot copies all accounts for persistence.
func (l *Ledger) Snapshot() map[string][]DebtEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string][]DebtEntry, len(l.accounts))
	for name, entries := range l.accounts {
		out[name] = slices.Clone(entries)
	}
	return out
}

// Restore replaces all accounts. Entries missing an ID or sequence get fresh ones.
func (l *Ledger) Restore(accounts map[string][]DebtEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[string][]DebtEntry, len(accounts))
	var maxSeq int64
	for _, entries := range accounts {
		for _, e := range entries {
			maxSeq = max(maxSeq, e.Seq)
		}
	}
	l.seq = maxSeq
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, raw := range names {
		name := shared.NormalizeName(raw)
		if name == "" {
			continue
		}
		for _, e := range accounts[raw] {
			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			if e.Seq == 0 {
				l.seq++
				e.Seq = l.seq
			}
			if e.Status != StatusPaid {
				e.Status = StatusPending
			}
			if e.Status == StatusPaid {
				e.Amount = decimal.Zero
			}
			l.accounts[name] = append(l.accounts[name], e)
		}
	}
}

func pendingBalance(entries []DebtEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Pending() {
			total = total.Add(e.Amount)
		}
	}
	return total
}
