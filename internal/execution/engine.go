package execution

import (
	"context"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"msgbus/internal/actor"
	"msgbus/internal/bus"
	"msgbus/internal/risk"
	"msgbus/internal/schema"
	"msgbus/internal/state"
)

const tag = "EXECUTION"

// Engine simulates an exchange: every order request that passes the risk
// checks is filled in full at its limit price, the rest are rejected.
type Engine struct {
	bus       *bus.Bus
	risk      atomic.Pointer[risk.Engine]
	positions *state.PositionReducer
	fills     atomic.Uint64
	rejects   atomic.Uint64
}

var _ actor.Actor = (*Engine)(nil)

// NewEngine creates a simulated execution engine.
func NewEngine(b *bus.Bus, limits risk.Config) *Engine {
	e := &Engine{
		bus:       b,
		positions: state.NewPositionReducer(),
	}
	e.risk.Store(risk.NewEngine(limits))
	return e
}

func (e *Engine) Name() string {
	return tag
}

// Start subscribes to order requests and consumes them on one task.
func (e *Engine) Start(ctx context.Context) []*actor.Task {
	orders := bus.Subscribe[schema.OrderRequest](e.bus)
	return []*actor.Task{
		actor.Go(ctx, "execution-orders", func(ctx context.Context) {
			actor.Consume(ctx, tag, orders, e.handleOrder)
		}),
	}
}

// UpdateRisk swaps the risk limits applied to subsequent orders.
func (e *Engine) UpdateRisk(limits risk.Config) {
	e.risk.Store(risk.NewEngine(limits))
	logs.Infof("[%s] risk limits updated: %+v", tag, limits)
}

// RiskConfig returns the limits currently applied.
func (e *Engine) RiskConfig() risk.Config {
	return e.risk.Load().Config()
}

// Position returns the executed position of a symbol.
func (e *Engine) Position(symbol string) schema.Quantity {
	return e.positions.Position(symbol)
}

// Positions returns every executed position sorted by symbol.
func (e *Engine) Positions() []state.PositionEntry {
	return e.positions.Snapshot()
}

// Fills returns the number of orders filled.
func (e *Engine) Fills() uint64 {
	return e.fills.Load()
}

// Rejects returns the number of orders rejected.
func (e *Engine) Rejects() uint64 {
	return e.rejects.Load()
}

func (e *Engine) handleOrder(order schema.OrderRequest) {
	logs.Infof("[%s] received %s, simulating fill", tag, order)

	decision := e.risk.Load().Evaluate(order, risk.StateView{
		Position: e.positions.Position(order.Symbol),
	})
	if !decision.Allow {
		e.reject(order, decision.Reason)
		return
	}

	fill := schema.FillEvent{
		OrderID: order.ID,
		Symbol:  order.Symbol,
		Side:    order.Side,
		Price:   order.Price,
		Qty:     order.Qty,
	}
	e.positions.ApplyFill(fill)
	e.fills.Add(1)
	logs.Infof("[%s] publishing %s", tag, fill)
	if _, err := bus.Publish(e.bus, fill); err != nil {
		logs.Errorf("[%s] publish fill, err: %+v", tag, err)
	}
}

func (e *Engine) reject(order schema.OrderRequest, reason schema.RiskReason) {
	reject := schema.OrderReject{
		OrderID: order.ID,
		Symbol:  order.Symbol,
		Reason:  reason,
	}
	e.rejects.Add(1)
	logs.Warnf("[%s] publishing %s", tag, reject)
	if _, err := bus.Publish(e.bus, reject); err != nil {
		logs.Errorf("[%s] publish reject, err: %+v", tag, err)
	}
}
