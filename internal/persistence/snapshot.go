// Package persistence saves and restores the POS ledgers.
package persistence

import (
	"time"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/sales"
)

// Snapshot is the persisted shape of the whole POS state.
type Snapshot struct {
	Products []inventory.Product           `json:"products"`
	Credit   map[string][]credit.DebtEntry `json:"credit"`
	Sales    []sales.Record                `json:"sales"`
	SavedAt  time.Time                     `json:"saved_at"`
}

// Empty reports whether the snapshot carries no products. A store without
// products is treated as a fresh install.
func (s Snapshot) Empty() bool {
	return len(s.Products) == 0
}

// Ledgers groups the in-memory state a snapshot is taken from.
type Ledgers struct {
	Inventory *inventory.Ledger
	Credit    *credit.Ledger
	History   *sales.History
}

// Capture copies the current ledger state.
func Capture(l Ledgers, at time.Time) Snapshot {
	snap := Snapshot{SavedAt: at}
	if l.Inventory != nil {
		snap.Products = l.Inventory.Snapshot()
	}
	if l.Credit != nil {
		snap.Credit = l.Credit.Snapshot()
	}
	if l.History != nil {
		snap.Sales = l.History.List()
	}
	return snap
}

// Apply replaces the ledger state with the snapshot contents.
func Apply(l Ledgers, snap Snapshot) {
	if l.Inventory != nil {
		l.Inventory.Restore(snap.Products)
	}
	if l.Credit != nil {
		l.Credit.Restore(snap.Credit)
	}
	if l.History != nil {
		l.History.Restore(snap.Sales)
	}
}
