package data

import (
	"time"

	"github.com/google/uuid"

	"msgbus/internal/schema"
)

// Generator creates synthetic bars with a steadily rising close.
type Generator struct {
	symbol string
	price  schema.Price
	step   schema.Price
}

// NewGenerator creates a generator starting at startPrice.
func NewGenerator(symbol string, startPrice, step schema.Price) *Generator {
	return &Generator{
		symbol: symbol,
		price:  startPrice,
		step:   step,
	}
}

// Next creates the next bar in sequence.
func (g *Generator) Next(now time.Time) schema.Bar {
	bar := schema.Bar{
		ID:      uuid.New(),
		TsEvent: now.UnixNano(),
		Symbol:  g.symbol,
		Close:   g.price,
	}
	g.price += g.step
	return bar
}
