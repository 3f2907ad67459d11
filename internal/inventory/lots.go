package inventory

import (
	"slices"

	"github.com/shopspring/decimal"
)

// SortLots returns a copy of lots ordered for depletion. Ties on ReceivedAt
// fall back to Seq in the same direction.
func SortLots(lots []Lot, order DepletionOrder) []Lot {
	sorted := slices.Clone(lots)
	slices.SortStableFunc(sorted, func(a, b Lot) int {
		c := a.ReceivedAt.Compare(b.ReceivedAt)
		if c == 0 {
			switch {
			case a.Seq < b.Seq:
				c = -1
			case a.Seq > b.Seq:
				c = 1
			}
		}
		if order == NewestFirst {
			return -c
		}
		return c
	})
	return sorted
}

// DepleteLots consumes qty from lots in the given order. The last lot touched
// may be partially consumed; lots left at or below LotEpsilon are dropped. It
// returns the remaining lots and any quantity the lots could not cover.
func DepleteLots(lots []Lot, qty decimal.Decimal, order DepletionOrder) ([]Lot, decimal.Decimal) {
	remaining := qty
	sorted := SortLots(lots, order)
	out := make([]Lot, 0, len(sorted))
	for _, lot := range sorted {
		if remaining.IsPositive() {
			take := decimal.Min(lot.Qty, remaining)
			lot.Qty = lot.Qty.Sub(take)
			remaining = remaining.Sub(take)
		}
		if lot.Qty.LessThanOrEqual(LotEpsilon) {
			continue
		}
		out = append(out, lot)
	}
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return out, remaining
}
