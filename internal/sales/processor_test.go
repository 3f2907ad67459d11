package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/shared"
)

// ============================================================================
// TEST FIXTURES
// ============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var saleTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	stock     *inventory.Ledger
	credit    *credit.Ledger
	allocator *credit.Allocator
	processor *Processor
	hooks     *recordingHooks
	idem      *memoryIdempotency
}

type recordingHooks struct {
	sales []SaleCompletedEvent
}

func (r *recordingHooks) HandleSaleCompleted(_ context.Context, evt SaleCompletedEvent) error {
	r.sales = append(r.sales, evt)
	return nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return saleTime }
	stock := inventory.NewLedger(inventory.LedgerConfig{Clock: clock}, nil, nil)
	_, err := stock.UpsertProduct(context.Background(), inventory.UpsertInput{Name: "Rice", Unit: "kg", Stock: dec("10"), Price: dec("50")})
	require.NoError(t, err)
	_, err = stock.UpsertProduct(context.Background(), inventory.UpsertInput{Name: "Sardines", Unit: "pc", Stock: dec("50"), Price: dec("21.5")})
	require.NoError(t, err)

	ledger := credit.NewLedger(credit.OldestFirst, clock)
	hooks := &recordingHooks{}
	idem := &memoryIdempotency{keys: map[string]bool{}}
	processor := NewProcessor(ProcessorConfig{
		Inventory:   stock,
		Credit:      ledger,
		Idempotency: idem,
		Integration: hooks,
		Clock:       clock,
	})
	return &fixture{
		stock:     stock,
		credit:    ledger,
		allocator: credit.NewAllocator(ledger, nil, nil),
		processor: processor,
		hooks:     hooks,
		idem:      idem,
	}
}

func (f *fixture) stockOf(t *testing.T, name string) decimal.Decimal {
	t.Helper()
	p, err := f.stock.Get(context.Background(), name)
	require.NoError(t, err)
	return p.Stock
}

// ============================================================================
// FINALIZE SALE
// ============================================================================

func TestFinalizeCashSaleRiceScenario(t *testing.T) {
	f := newFixture(t)
	record, err := f.processor.FinalizeSale(context.Background(), FinalizeInput{
		Items:        []inventory.LineItem{{Name: "Rice", Quantity: dec("3")}},
		Type:         TypeCash,
		CashReceived: dec("200"),
	})
	require.NoError(t, err)
	require.True(t, record.Total.Equal(dec("150")))
	require.Equal(t, CashCustomerName, record.Customer)
	require.Equal(t, saleTime, record.Timestamp)
	require.True(t, dec("200").Sub(record.Total).Equal(dec("50")))
	require.True(t, f.stockOf(t, "Rice").Equal(dec("7")))
	require.Equal(t, 1, f.processor.History().Len())
	require.Empty(t, f.credit.ListCustomersWithHistory(context.Background()))
	require.Len(t, f.hooks.sales, 1)
}

func TestFinalizeCreditSaleAnaScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	record, err := f.processor.FinalizeSale(ctx, FinalizeInput{
		Customer: "ana",
		Items:    []inventory.LineItem{{Name: "rice", Quantity: dec("2.4")}},
		Type:     TypeCredit,
	})
	require.NoError(t, err)
	require.True(t, record.Total.Equal(dec("120")))
	require.Equal(t, "Ana", record.Customer)
	require.NotEmpty(t, record.DebtEntryID)
	require.True(t, f.credit.PendingBalance(ctx, "Ana").Equal(dec("120")))

	receipt, err := f.allocator.PayAcrossAccount(ctx, "Ana", dec("120"))
	require.NoError(t, err)
	require.True(t, receipt.Balance.IsZero())
	entries, err := f.credit.SortedEntries(ctx, "Ana", credit.OldestFirst)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, credit.StatusPaid, entries[0].Status)
	require.True(t, entries[0].Amount.IsZero())
}

func TestFinalizeCreditSalesAreNotMerged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.processor.FinalizeSale(ctx, FinalizeInput{
			Customer: "Ana",
			Items:    []inventory.LineItem{{Name: "Sardines", Quantity: dec("2")}},
			Type:     TypeCredit,
		})
		require.NoError(t, err)
	}
	entries, err := f.credit.SortedEntries(ctx, "Ana", credit.OldestFirst)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, f.credit.PendingBalance(ctx, "Ana").Equal(dec("86")))
}

func TestFinalizeRejectsWithoutMutation(t *testing.T) {
	cases := []struct {
		name  string
		input FinalizeInput
		want  error
	}{
		{"empty sale", FinalizeInput{Type: TypeCash}, shared.ErrEmptySale},
		{"credit without customer", FinalizeInput{Type: TypeCredit, Customer: "  ", Items: []inventory.LineItem{{Name: "Rice", Quantity: dec("1")}}}, shared.ErrValidation},
		{"unknown type", FinalizeInput{Type: "Barter", Items: []inventory.LineItem{{Name: "Rice", Quantity: dec("1")}}}, shared.ErrValidation},
		{"cash short", FinalizeInput{Type: TypeCash, CashReceived: dec("149.99"), Items: []inventory.LineItem{{Name: "Rice", Quantity: dec("3")}}}, shared.ErrInsufficientPayment},
		{"over stock", FinalizeInput{Type: TypeCredit, Customer: "Ana", Items: []inventory.LineItem{{Name: "Rice", Quantity: dec("11")}}}, shared.ErrInsufficientStock},
		{"unknown product", FinalizeInput{Type: TypeCredit, Customer: "Ana", Items: []inventory.LineItem{{Name: "Rice", Quantity: dec("1")}, {Name: "Caviar", Quantity: dec("1")}}}, shared.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.processor.FinalizeSale(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.want)
			require.True(t, f.stockOf(t, "Rice").Equal(dec("10")))
			require.Zero(t, f.processor.History().Len())
			require.Empty(t, f.credit.ListCustomersWithHistory(context.Background()))
			require.Empty(t, f.hooks.sales)
		})
	}
}

func TestFinalizeInsufficientPaymentCarriesAmounts(t *testing.T) {
	f := newFixture(t)
	_, err := f.processor.FinalizeSale(context.Background(), FinalizeInput{
		Type:         TypeCash,
		CashReceived: dec("100"),
		Items:        []inventory.LineItem{{Name: "Rice", Quantity: dec("3")}},
	})
	var payErr *shared.InsufficientPaymentError
	require.True(t, errors.As(err, &payErr))
	require.True(t, payErr.Required.Equal(dec("150")))
	require.True(t, payErr.Given.Equal(dec("100")))
}

func TestFinalizeIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := FinalizeInput{
		Type:           TypeCash,
		CashReceived:   dec("50"),
		Items:          []inventory.LineItem{{Name: "Rice", Quantity: dec("1")}},
		IdempotencyKey: "till-1-0001",
	}
	_, err := f.processor.FinalizeSale(ctx, input)
	require.NoError(t, err)
	_, err = f.processor.FinalizeSale(ctx, input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.True(t, f.stockOf(t, "Rice").Equal(dec("9")))

	failing := input
	failing.IdempotencyKey = "till-1-0002"
	failing.CashReceived = dec("1")
	_, err = f.processor.FinalizeSale(ctx, failing)
	require.ErrorIs(t, err, shared.ErrInsufficientPayment)
	require.False(t, f.idem.keys["till-1-0002"])
}

func TestQuoteRequiresItems(t *testing.T) {
	f := newFixture(t)
	_, err := f.processor.Quote(context.Background(), nil)
	require.ErrorIs(t, err, shared.ErrEmptySale)
	res, err := f.processor.Quote(context.Background(), []inventory.LineItem{{Name: "Sardines", Quantity: dec("2")}})
	require.NoError(t, err)
	require.True(t, res.Subtotal.Equal(dec("43")))
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" Utang ")
	require.NoError(t, err)
	require.Equal(t, TypeCredit, typ)
	typ, err = ParseType("CASH")
	require.NoError(t, err)
	require.Equal(t, TypeCash, typ)
	_, err = ParseType("gcash")
	require.Error(t, err)
}
