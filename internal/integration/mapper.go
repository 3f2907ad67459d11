package integration

import (
	"time"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/sales"
)

// SaleLinePayload is one priced line of a published sale.
type SaleLinePayload struct {
	Product   string `json:"product"`
	Unit      string `json:"unit"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
}

// SaleCompletedPayload is the SaleCompleted event body.
type SaleCompletedPayload struct {
	SaleID      string            `json:"sale_id"`
	Type        string            `json:"type"`
	Customer    string            `json:"customer"`
	Total       string            `json:"total"`
	DebtEntryID string            `json:"debt_entry_id,omitempty"`
	Lines       []SaleLinePayload `json:"lines"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// AllocationPayload is one settled or reduced debt entry.
type AllocationPayload struct {
	EntryID      string `json:"entry_id"`
	Applied      string `json:"applied"`
	BalanceAfter string `json:"balance_after"`
	Settled      bool   `json:"settled"`
}

// PaymentRecordedPayload is the PaymentRecorded event body.
type PaymentRecordedPayload struct {
	Customer    string              `json:"customer"`
	Mode        string              `json:"mode"`
	Amount      string              `json:"amount"`
	Balance     string              `json:"balance"`
	Allocations []AllocationPayload `json:"allocations"`
}

// CatalogChangedPayload is the CatalogChanged event body.
type CatalogChangedPayload struct {
	Action   string `json:"action"`
	Product  string `json:"product"`
	Previous string `json:"previous,omitempty"`
	Unit     string `json:"unit"`
	Stock    string `json:"stock"`
	Price    string `json:"price"`
}

func salePayload(rec sales.Record) SaleCompletedPayload {
	lines := make([]SaleLinePayload, 0, len(rec.Items))
	for _, l := range rec.Items {
		lines = append(lines, SaleLinePayload{
			Product:   l.Name,
			Unit:      l.Unit,
			Quantity:  l.Quantity.String(),
			UnitPrice: l.UnitPrice.StringFixed(2),
			Amount:    l.Amount.StringFixed(2),
		})
	}
	return SaleCompletedPayload{
		SaleID:      rec.ID,
		Type:        string(rec.Type),
		Customer:    rec.Customer,
		Total:       rec.Total.StringFixed(2),
		DebtEntryID: rec.DebtEntryID,
		Lines:       lines,
		OccurredAt:  rec.Timestamp,
	}
}

func paymentPayload(r credit.Receipt) PaymentRecordedPayload {
	allocations := make([]AllocationPayload, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		allocations = append(allocations, AllocationPayload{
			EntryID:      a.EntryID,
			Applied:      a.Applied.StringFixed(2),
			BalanceAfter: a.BalanceAfter.StringFixed(2),
			Settled:      a.Settled,
		})
	}
	return PaymentRecordedPayload{
		Customer:    r.Customer,
		Mode:        string(r.Mode),
		Amount:      r.Amount.StringFixed(2),
		Balance:     r.Balance.StringFixed(2),
		Allocations: allocations,
	}
}

func catalogPayload(evt inventory.CatalogChangedEvent) CatalogChangedPayload {
	return CatalogChangedPayload{
		Action:   string(evt.Action),
		Product:  evt.Product.Name,
		Previous: evt.Previous,
		Unit:     evt.Product.Unit,
		Stock:    evt.Product.Stock.String(),
		Price:    evt.Product.Price.StringFixed(2),
	}
}
