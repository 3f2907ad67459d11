package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/inventory"
)

// Type enumerates sale payment types.
type Type string

const (
	TypeCash   Type = "Cash"
	TypeCredit Type = "Credit"
)

// CashCustomerName labels cash sales made without a customer name.
const CashCustomerName = "Cash Customer"

// ParseType maps user input onto a sale Type.
func ParseType(raw string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return TypeCash, nil
	case "credit", "utang":
		return TypeCredit, nil
	default:
		return "", fmt.Errorf("sales: unknown sale type %q", raw)
	}
}

// Record is an immutable entry in the sales history.
type Record struct {
	ID          string                   `json:"id"`
	Items       []inventory.ReservedLine `json:"items"`
	Total       decimal.Decimal          `json:"total"`
	Type        Type                     `json:"type"`
	Customer    string                   `json:"customer"`
	DebtEntryID string                   `json:"debt_entry_id,omitempty"`
	Timestamp   time.Time                `json:"timestamp"`
}

// FinalizeInput is the checkout request for one sale.
type FinalizeInput struct {
	Customer       string
	Items          []inventory.LineItem
	Type           Type
	CashReceived   decimal.Decimal
	IdempotencyKey string
}
