package persistence

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/inventory"
)

// DefaultSnapshot is the starter catalog and credit book loaded into an
// empty store.
func DefaultSnapshot(now time.Time) Snapshot {
	day := 24 * time.Hour
	return Snapshot{
		Products: []inventory.Product{
			{Name: "Sardines", Unit: "pc", Stock: decimal.NewFromInt(50), Price: decimal.RequireFromString("21.5")},
			{Name: "Ground Coffee", Unit: "kg", Stock: decimal.RequireFromString("1.5"), Price: decimal.NewFromInt(350)},
			{Name: "Bottled Water", Unit: "doz", Stock: decimal.NewFromInt(24), Price: decimal.NewFromInt(250)},
		},
		Credit: map[string][]credit.DebtEntry{
			"Josie": {
				{Seq: 1, Timestamp: now.Add(-5 * day), Amount: decimal.Zero, Status: credit.StatusPaid},
				{Seq: 2, Timestamp: now.Add(-day), Amount: decimal.NewFromInt(100), Status: credit.StatusPending},
			},
			"Raymart": {
				{Seq: 3, Timestamp: now, Amount: decimal.NewFromInt(75), Status: credit.StatusPending},
			},
		},
		SavedAt: now,
	}
}
