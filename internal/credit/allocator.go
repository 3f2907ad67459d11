package credit

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/shared"
)

// Allocator applies customer payments to pending entries of a Ledger using
// the ledger's payment order.
type Allocator struct {
	ledger      *Ledger
	logger      *slog.Logger
	integration IntegrationHandler
}

// NewAllocator builds an Allocator.
func NewAllocator(ledger *Ledger, logger *slog.Logger, integration IntegrationHandler) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{ledger: ledger, logger: logger, integration: integration}
}

// PayAcrossAccount spreads amount over the customer's pending entries in
// payment order. The whole payment is rejected when it exceeds the balance.
// The guards compare the amount as given; residuals are rounded after each
// mutation.
func (a *Allocator) PayAcrossAccount(ctx context.Context, customer string, amount decimal.Decimal) (Receipt, error) {
	name := shared.NormalizeName(customer)
	if !amount.IsPositive() {
		return Receipt{}, shared.Invalid("amount", "payment must be > 0")
	}

	l := a.ledger
	l.mu.Lock()
	entries, ok := l.accounts[name]
	if !ok || len(entries) == 0 {
		l.mu.Unlock()
		return Receipt{}, &shared.NotFoundError{Kind: "customer", Key: name}
	}
	idx := pendingIndices(entries, l.order)
	if len(idx) == 0 {
		l.mu.Unlock()
		return Receipt{}, &shared.NoBalanceError{Customer: name}
	}
	balance := pendingBalance(entries)
	if amount.GreaterThan(balance) {
		l.mu.Unlock()
		return Receipt{}, &shared.OverpaymentError{Customer: name, Amount: amount, Limit: balance}
	}

	remaining := amount
	allocations := make([]Allocation, 0, len(idx))
	for _, i := range idx {
		if !remaining.IsPositive() {
			break
		}
		entry := &entries[i]
		before := entry.Amount
		if remaining.GreaterThanOrEqual(entry.Amount.Sub(shared.AmountEpsilon)) {
			remaining = remaining.Sub(entry.Amount)
			entry.Amount = decimal.Zero
			entry.Status = StatusPaid
			allocations = append(allocations, allocationFor(*entry, before))
			continue
		}
		entry.Amount = shared.Round2(entry.Amount.Sub(remaining))
		remaining = decimal.Zero
		settle(entry)
		allocations = append(allocations, allocationFor(*entry, before))
		break
	}
	receipt := Receipt{
		Customer:    name,
		Mode:        ModeAccount,
		Amount:      amount,
		Balance:     shared.Round2(pendingBalance(entries)),
		Allocations: allocations,
		RecordedAt:  l.now(),
	}
	l.mu.Unlock()

	a.notify(ctx, receipt)
	return receipt, nil
}

// PayAgainstEntry applies amount to the single pending entry addressed by
// ref. A targeted payment may never exceed that entry's remaining amount.
func (a *Allocator) PayAgainstEntry(ctx context.Context, customer string, ref EntryRef, amount decimal.Decimal) (Receipt, error) {
	name := shared.NormalizeName(customer)
	if !amount.IsPositive() {
		return Receipt{}, shared.Invalid("amount", "payment must be > 0")
	}

	l := a.ledger
	l.mu.Lock()
	entries, ok := l.accounts[name]
	if !ok || len(entries) == 0 {
		l.mu.Unlock()
		return Receipt{}, &shared.NotFoundError{Kind: "customer", Key: name}
	}
	idx := pendingIndices(entries, l.order)
	if ref.Position < 0 || ref.Position >= len(idx) {
		l.mu.Unlock()
		return Receipt{}, &shared.NotFoundError{Kind: "entry", Key: strconv.Itoa(ref.Position)}
	}
	entry := &entries[idx[ref.Position]]
	if ref.EntryID != "" && entry.ID != ref.EntryID {
		l.mu.Unlock()
		return Receipt{}, &shared.NotFoundError{Kind: "entry", Key: ref.EntryID}
	}
	if amount.GreaterThan(entry.Amount.Add(shared.AmountEpsilon)) {
		l.mu.Unlock()
		return Receipt{}, &shared.OverpaymentError{Customer: name, Amount: amount, Limit: entry.Amount}
	}

	before := entry.Amount
	entry.Amount = shared.Round2(entry.Amount.Sub(amount))
	settle(entry)
	receipt := Receipt{
		Customer:    name,
		Mode:        ModeEntry,
		Amount:      amount,
		Balance:     shared.Round2(pendingBalance(entries)),
		Allocations: []Allocation{allocationFor(*entry, before)},
		RecordedAt:  l.now(),
	}
	l.mu.Unlock()

	a.notify(ctx, receipt)
	return receipt, nil
}

// settle marks the entry paid when its residual falls within PaidThreshold.
func settle(entry *DebtEntry) {
	if shared.IsSettled(entry.Amount) {
		entry.Amount = decimal.Zero
		entry.Status = StatusPaid
	}
}

func allocationFor(entry DebtEntry, before decimal.Decimal) Allocation {
	return Allocation{
		EntryID:       entry.ID,
		Applied:       before.Sub(entry.Amount),
		BalanceBefore: before,
		BalanceAfter:  entry.Amount,
		Settled:       entry.Status == StatusPaid,
	}
}

func (a *Allocator) notify(ctx context.Context, receipt Receipt) {
	if a.integration == nil {
		return
	}
	evt := PaymentRecordedEvent{Receipt: receipt}
	if err := a.integration.HandlePaymentRecorded(ctx, evt); err != nil {
		a.logger.Warn("payment post-commit hook", slog.String("customer", receipt.Customer), slog.Any("error", err))
	}
}
