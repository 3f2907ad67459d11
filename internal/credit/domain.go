package credit

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates debt entry statuses.
type Status string

const (
	StatusPending Status = "Pending"
	StatusPaid    Status = "Paid"
)

// PaymentOrder decides which pending entries a payment settles first.
type PaymentOrder string

const (
	// OldestFirst settles the earliest entries first.
	OldestFirst PaymentOrder = "OLDEST_FIRST"
	// NewestFirst settles the most recent entries first.
	NewestFirst PaymentOrder = "NEWEST_FIRST"
)

// ParsePaymentOrder maps a configuration value onto a PaymentOrder.
func ParsePaymentOrder(raw string) (PaymentOrder, error) {
	switch PaymentOrder(strings.ToUpper(strings.TrimSpace(raw))) {
	case OldestFirst, "":
		return OldestFirst, nil
	case NewestFirst:
		return NewestFirst, nil
	default:
		return "", fmt.Errorf("credit: unknown payment order %q", raw)
	}
}

// DebtEntry is one credit sale owed by a customer. Amount only decreases and
// is exactly zero once Status is Paid.
type DebtEntry struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
}

// Pending reports whether the entry still carries a balance.
func (e DebtEntry) Pending() bool {
	return e.Status == StatusPending
}

// EntryRef addresses a pending entry by its position in the payment-ordered
// pending list. EntryID, when set, must match the entry at that position.
type EntryRef struct {
	Position int
	EntryID  string
}

// PaymentMode distinguishes account-wide from targeted payments.
type PaymentMode string

const (
	ModeAccount PaymentMode = "account"
	ModeEntry   PaymentMode = "entry"
)

// Allocation records how much of a payment one entry absorbed.
type Allocation struct {
	EntryID       string          `json:"entry_id"`
	Applied       decimal.Decimal `json:"applied"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Settled       bool            `json:"settled"`
}

// Receipt summarizes an accepted payment.
type Receipt struct {
	Customer    string          `json:"customer"`
	Mode        PaymentMode     `json:"mode"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	Allocations []Allocation    `json:"allocations"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// Summary aggregates one customer's credit history.
type Summary struct {
	Customer     string          `json:"customer"`
	Entries      int             `json:"entries"`
	PaidCount    int             `json:"paid_count"`
	PendingCount int             `json:"pending_count"`
	Balance      decimal.Decimal `json:"balance"`
}
