package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"msgbus/internal/schema"
)

func TestEvaluate(t *testing.T) {
	buy := func(price schema.Price, qty schema.Quantity) schema.OrderRequest {
		return schema.OrderRequest{Symbol: "BTC-USD", Side: schema.OrderSideBuy, Price: price, Qty: qty}
	}

	testCases := []struct {
		desc     string
		cfg      Config
		order    schema.OrderRequest
		position schema.Quantity
		allow    bool
		reason   schema.RiskReason
	}{
		{desc: "no limits", order: buy(103, 1), allow: true},
		{desc: "kill switch", cfg: Config{KillSwitch: true}, order: buy(103, 1), reason: schema.RiskReasonKillSwitch},
		{desc: "max qty", cfg: Config{MaxOrderQty: 5}, order: buy(103, 6), reason: schema.RiskReasonMaxQty},
		{desc: "max qty boundary", cfg: Config{MaxOrderQty: 5}, order: buy(103, 5), allow: true},
		{desc: "max notional", cfg: Config{MaxOrderNotional: 500}, order: buy(103, 5), reason: schema.RiskReasonMaxNotional},
		{desc: "notional overflow", order: buy(schema.Price(maxInt64), 2), reason: schema.RiskReasonMaxNotional},
		{desc: "position limit", cfg: Config{MaxPosition: 3}, order: buy(103, 1), position: 3, reason: schema.RiskReasonPositionLimit},
		{
			desc:     "sell reduces position",
			cfg:      Config{MaxPosition: 3},
			order:    schema.OrderRequest{Side: schema.OrderSideSell, Price: 103, Qty: 1},
			position: 3,
			allow:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			d := NewEngine(tc.cfg).Evaluate(tc.order, StateView{Position: tc.position})
			assert.Equal(t, tc.allow, d.Allow)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestEvaluateNextPosition(t *testing.T) {
	e := NewEngine(Config{MaxPosition: 10})
	d := e.Evaluate(schema.OrderRequest{Side: schema.OrderSideBuy, Price: 100, Qty: 4}, StateView{Position: 2})

	assert.True(t, d.Allow)
	assert.Equal(t, schema.Quantity(6), d.NextPos)
	assert.Equal(t, schema.Notional(400), d.Notional)
}
