package sales

import (
	"slices"
	"sync"
)

// History is the append-only list of finalized sales.
type History struct {
	mu      sync.Mutex
	records []Record
}

// NewHistory builds an empty History.
func NewHistory() *History {
	return &History{}
}

// Append adds a record.
func (h *History) Append(record Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
}

// List returns the records in insertion order.
func (h *History) List() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.records)
}

// Len reports the number of records.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Restore replaces the history.
func (h *History) Restore(records []Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = slices.Clone(records)
}
