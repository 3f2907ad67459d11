package credit

import (
	"slices"
)

func compareEntries(a, b DebtEntry, order PaymentOrder) int {
	c := a.Timestamp.Compare(b.Timestamp)
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
}

// SortEntries returns a copy of entries ordered by timestamp, breaking ties on
// insertion sequence in the same direction. The result is deterministic for
// equal inputs, so positions handed out for targeted payments stay valid.
func SortEntries(entries []DebtEntry, order PaymentOrder) []DebtEntry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b DebtEntry) int { return compareEntries(a, b, order) })
	return sorted
}

// pendingIndices returns indexes into entries of the pending ones, in order.
func pendingIndices(entries []DebtEntry, order PaymentOrder) []int {
	idx := make([]int, 0, len(entries))
	for i, e := range entries {
		if e.Pending() {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int { return compareEntries(entries[a], entries[b], order) })
	return idx
}
