package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DepletionOrder selects which lots a sale consumes first.
type DepletionOrder string

const (
	// OldestFirst consumes the earliest received lot first (FIFO).
	OldestFirst DepletionOrder = "OLDEST_FIRST"
	// NewestFirst consumes the most recently received lot first (LIFO).
	NewestFirst DepletionOrder = "NEWEST_FIRST"
)

// ParseDepletionOrder maps a configuration value onto a DepletionOrder.
func ParseDepletionOrder(raw string) (DepletionOrder, error) {
	switch DepletionOrder(strings.ToUpper(strings.TrimSpace(raw))) {
	case OldestFirst, "":
		return OldestFirst, nil
	case NewestFirst:
		return NewestFirst, nil
	default:
		return "", fmt.Errorf("inventory: unknown depletion order %q", raw)
	}
}

// LotEpsilon is the quantity at or below which a lot is considered empty.
var LotEpsilon = decimal.New(1, -6)

// Product is a sellable item keyed by its normalized name.
type Product struct {
	Name  string          `json:"name"`
	Unit  string          `json:"unit"`
	Stock decimal.Decimal `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

// Lot is a received batch of a product.
type Lot struct {
	Qty        decimal.Decimal `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ReceivedAt time.Time       `json:"received_at"`
	Seq        int64           `json:"seq"`
}

// LineItem requests a quantity of a product.
type LineItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReservedLine is a validated line priced at the current product price.
type ReservedLine struct {
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// Reservation is the outcome of validating a batch of line items.
type Reservation struct {
	Lines    []ReservedLine  `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ApproveFunc is consulted with the computed subtotal before stock is touched.
// Returning an error aborts the depletion.
type ApproveFunc func(subtotal decimal.Decimal) error

// UpsertInput creates a product when Original is empty, otherwise edits or renames Original.
type UpsertInput struct {
	Original string
	Name     string
	Unit     string
	Stock    decimal.Decimal
	Price    decimal.Decimal
}
