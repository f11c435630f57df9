package state

import (
	"sort"
	"sync"

	"msgbus/internal/schema"
)

// PositionReducer updates positions based on fill events. It is safe for concurrent use.
type PositionReducer struct {
	mu        sync.RWMutex
	positions map[string]schema.Quantity
}

// PositionEntry is a single symbol position entry.
type PositionEntry struct {
	Symbol string
	Qty    schema.Quantity
}

// NewPositionReducer creates an empty reducer.
func NewPositionReducer() *PositionReducer {
	return &PositionReducer{positions: make(map[string]schema.Quantity)}
}

// ApplyFill updates the position and returns the new quantity.
func (r *PositionReducer) ApplyFill(fill schema.FillEvent) schema.Quantity {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.positions[fill.Symbol]
	next := ApplySide(current, fill.Side, fill.Qty)
	r.positions[fill.Symbol] = next
	return next
}

// Position returns the current position quantity for a symbol.
func (r *PositionReducer) Position(symbol string) schema.Quantity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.positions[symbol]
}

// Snapshot returns every position sorted by symbol.
func (r *PositionReducer) Snapshot() []PositionEntry {
	r.mu.RLock()
	entries := make([]PositionEntry, 0, len(r.positions))
	for symbol, qty := range r.positions {
		entries = append(entries, PositionEntry{Symbol: symbol, Qty: qty})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Symbol < entries[j].Symbol
	})
	return entries
}

// ApplySide returns pos after trading qty on side.
func ApplySide(pos schema.Quantity, side schema.OrderSide, qty schema.Quantity) schema.Quantity {
	switch side {
	case schema.OrderSideBuy:
		return pos + qty
	case schema.OrderSideSell:
		return pos - qty
	default:
		return pos
	}
}
