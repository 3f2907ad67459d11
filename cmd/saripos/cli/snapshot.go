package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/saripos/saripos/internal/persistence"
)

// SnapshotCLI exports and imports the persisted ledger state.
type SnapshotCLI struct {
	store persistence.Store
}

// NewSnapshotCLI constructs the helper over a snapshot store.
func NewSnapshotCLI(store persistence.Store) *SnapshotCLI {
	return &SnapshotCLI{store: store}
}

// Export writes the stored snapshot to w. Format "csv" writes the inventory
// file only; anything else writes the whole snapshot as JSON.
func (c *SnapshotCLI) Export(ctx context.Context, w io.Writer, format string) error {
	snap, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("snapshot cli: load: %w", err)
	}
	if strings.EqualFold(format, "csv") {
		raw, err := persistence.EncodeInventoryCSV(snap.Products)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ImportInventory replaces the stored catalog with the CSV read from r.
// Credit accounts and sales history are kept. It returns the product count.
func (c *SnapshotCLI) ImportInventory(ctx context.Context, r io.Reader) (int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("snapshot cli: read csv: %w", err)
	}
	products, err := persistence.DecodeInventoryCSV(raw)
	if err != nil {
		return 0, err
	}
	snap, err := c.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot cli: load: %w", err)
	}
	snap.Products = products
	if err := c.store.Save(ctx, snap); err != nil {
		return 0, fmt.Errorf("snapshot cli: save: %w", err)
	}
	return len(products), nil
}
