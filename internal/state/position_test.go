package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"msgbus/internal/schema"
)

func TestPositionReducer(t *testing.T) {
	r := NewPositionReducer()

	assert.Equal(t, schema.Quantity(3), r.ApplyFill(schema.FillEvent{Symbol: "BTC-USD", Side: schema.OrderSideBuy, Qty: 3}))
	assert.Equal(t, schema.Quantity(1), r.ApplyFill(schema.FillEvent{Symbol: "BTC-USD", Side: schema.OrderSideSell, Qty: 2}))
	assert.Equal(t, schema.Quantity(1), r.ApplyFill(schema.FillEvent{Symbol: "BTC-USD", Side: schema.OrderSideUnknown, Qty: 9}))
	r.ApplyFill(schema.FillEvent{Symbol: "ETH-USD", Side: schema.OrderSideSell, Qty: 5})

	assert.Equal(t, schema.Quantity(-5), r.Position("ETH-USD"))
	assert.Equal(t, schema.Quantity(0), r.Position("SOL-USD"))
	assert.Equal(t, []PositionEntry{
		{Symbol: "BTC-USD", Qty: 1},
		{Symbol: "ETH-USD", Qty: -5},
	}, r.Snapshot())
}

func TestPositionReducerConcurrent(t *testing.T) {
	r := NewPositionReducer()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				r.ApplyFill(schema.FillEvent{Symbol: "BTC-USD", Side: schema.OrderSideBuy, Qty: 1})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, schema.Quantity(800), r.Position("BTC-USD"))
}
