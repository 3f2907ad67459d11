package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  rice ":            "Rice",
		"GROUND   coffee":    "Ground Coffee",
		"bottled\twater":     "Bottled Water",
		"":                   "",
		"   ":                "",
		"sardines in tomato": "Sardines In Tomato",
	}
	for input, want := range cases {
		require.Equal(t, want, NormalizeName(input), "input %q", input)
	}
}

func TestRound2AndSettlement(t *testing.T) {
	require.True(t, Round2(decimal.RequireFromString("10.005")).Equal(decimal.RequireFromString("10.01")))
	require.True(t, Round2(decimal.RequireFromString("3.333")).Equal(decimal.RequireFromString("3.33")))
	require.True(t, IsSettled(decimal.RequireFromString("0.009")))
	require.True(t, IsSettled(decimal.Zero))
	require.False(t, IsSettled(decimal.RequireFromString("0.01")))
	require.True(t, Sum(decimal.NewFromInt(30), decimal.NewFromInt(50)).Equal(decimal.NewFromInt(80)))
}

func TestErrorKindsUnwrapToSentinels(t *testing.T) {
	require.ErrorIs(t, Invalid("name", "required"), ErrValidation)
	require.ErrorIs(t, &NotFoundError{Kind: "product", Key: "Rice"}, ErrNotFound)
	require.ErrorIs(t, &InsufficientStockError{Product: "Rice"}, ErrInsufficientStock)
	require.ErrorIs(t, &InsufficientPaymentError{}, ErrInsufficientPayment)
	require.ErrorIs(t, &NoBalanceError{Customer: "Ana"}, ErrNoBalance)
	require.ErrorIs(t, &OverpaymentError{Customer: "Ana"}, ErrOverpayment)

	err := error(&InsufficientStockError{Product: "Rice", Requested: decimal.NewFromInt(12), Available: decimal.NewFromInt(10)})
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, "Rice", stockErr.Product)
	require.Contains(t, err.Error(), "requested 12, available 10")
}

func TestMonotonicClockNeverGoesBackwards(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	readings := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	clock := MonotonicClock(func() time.Time {
		v := readings[i]
		i++
		return v
	})
	require.Equal(t, base, clock())
	require.Equal(t, base.Add(time.Nanosecond), clock())
	require.Equal(t, base.Add(time.Second), clock())
}

func TestMonotonicClockSeparatesEqualReadings(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := MonotonicClock(func() time.Time { return fixed })
	first, second, third := clock(), clock(), clock()
	require.Equal(t, fixed, first)
	require.True(t, second.After(first))
	require.True(t, third.After(second))
}

func TestTerminalContext(t *testing.T) {
	require.Equal(t, "local", TerminalFromContext(context.Background()))
	ctx := ContextWithTerminal(context.Background(), "till-2")
	require.Equal(t, "till-2", TerminalFromContext(ctx))
}

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
	tag   pgconn.CommandTag
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.tag, f.err
}

func TestIdempotencyStoreMapsUniqueViolation(t *testing.T) {
	db := &fakeExecer{err: &pgconn.PgError{Code: "23505"}}
	store := NewIdempotencyStore(db)
	err := store.CheckAndInsert(context.Background(), "k1", "sales")
	require.ErrorIs(t, err, ErrIdempotencyConflict)

	db.err = nil
	require.NoError(t, store.CheckAndInsert(context.Background(), "k2", "sales"))
	require.Len(t, db.calls, 2)
	require.Error(t, store.CheckAndInsert(context.Background(), "", "sales"))
}

func TestIdempotencyCleanupReportsRows(t *testing.T) {
	db := &fakeExecer{tag: pgconn.NewCommandTag("DELETE 3")}
	store := NewIdempotencyStore(db)
	removed, err := store.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 3, removed)
}

func TestAuditLoggerValidatesRecord(t *testing.T) {
	db := &fakeExecer{}
	logger := NewAuditLogger(db)
	require.Error(t, logger.Record(context.Background(), AuditLog{Action: "sale:finalize"}))
	require.NoError(t, logger.Record(context.Background(), AuditLog{Action: "sale:finalize", Entity: "sale", EntityID: "abc", Meta: map[string]any{"total": "10.00"}}))
	require.Len(t, db.calls, 1)
	require.Contains(t, db.calls[0].sql, "INSERT INTO audit_logs")
}
