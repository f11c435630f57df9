package strategy

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"msgbus/internal/actor"
	"msgbus/internal/bus"
	"msgbus/internal/schema"
	"msgbus/internal/state"
)

const tag = "STRATEGY"

// Config controls the trend follower.
type Config struct {
	Symbol    string
	Threshold schema.Price
	OrderQty  schema.Quantity
}

// TrendFollower buys whenever a bar closes above the threshold.
//
// It consumes Bar, FillEvent and OrderReject and produces OrderRequest.
type TrendFollower struct {
	bus       *bus.Bus
	cfg       Config
	positions *state.PositionReducer
	orders    atomic.Uint64
	rejects   atomic.Uint64
}

var _ actor.Actor = (*TrendFollower)(nil)

// NewTrendFollower creates the strategy.
func NewTrendFollower(b *bus.Bus, cfg Config) *TrendFollower {
	if cfg.OrderQty <= 0 {
		cfg.OrderQty = 1
	}
	return &TrendFollower{
		bus:       b,
		cfg:       cfg,
		positions: state.NewPositionReducer(),
	}
}

func (s *TrendFollower) Name() string {
	return tag
}

// Start subscribes to bars, fills and rejects, then consumes each on its own task.
func (s *TrendFollower) Start(ctx context.Context) []*actor.Task {
	bars := bus.Subscribe[schema.Bar](s.bus)
	fills := bus.Subscribe[schema.FillEvent](s.bus)
	rejects := bus.Subscribe[schema.OrderReject](s.bus)

	return []*actor.Task{
		actor.Go(ctx, "strategy-bars", func(ctx context.Context) {
			actor.Consume(ctx, tag, bars, s.handleBar)
		}),
		actor.Go(ctx, "strategy-fills", func(ctx context.Context) {
			actor.Consume(ctx, tag, fills, s.handleFill)
		}),
		actor.Go(ctx, "strategy-rejects", func(ctx context.Context) {
			actor.Consume(ctx, tag, rejects, s.handleReject)
		}),
	}
}

// Position returns the position built from fills received so far.
func (s *TrendFollower) Position() schema.Quantity {
	return s.positions.Position(s.cfg.Symbol)
}

// Orders returns the number of orders sent.
func (s *TrendFollower) Orders() uint64 {
	return s.orders.Load()
}

// Rejects returns the number of rejects received.
func (s *TrendFollower) Rejects() uint64 {
	return s.rejects.Load()
}

func (s *TrendFollower) handleBar(bar schema.Bar) {
	if bar.Symbol != s.cfg.Symbol {
		return
	}
	logs.Infof("[%s] received bar with close price %d", tag, bar.Close)
	if bar.Close <= s.cfg.Threshold {
		return
	}

	order := schema.OrderRequest{
		ID:     uuid.New(),
		Symbol: s.cfg.Symbol,
		Side:   schema.OrderSideBuy,
		Price:  bar.Close,
		Qty:    s.cfg.OrderQty,
	}
	s.orders.Add(1)
	logs.Infof("[%s] condition met, publishing %s", tag, order)
	if _, err := bus.Publish(s.bus, order); err != nil {
		logs.Errorf("[%s] publish order, err: %+v", tag, err)
	}
}

func (s *TrendFollower) handleFill(fill schema.FillEvent) {
	if fill.Symbol != s.cfg.Symbol {
		return
	}
	pos := s.positions.ApplyFill(fill)
	logs.Infof("[%s] received %s, position: %d", tag, fill, pos)
}

func (s *TrendFollower) handleReject(reject schema.OrderReject) {
	if reject.Symbol != s.cfg.Symbol {
		return
	}
	s.rejects.Add(1)
	logs.Warnf("[%s] order rejected: %s", tag, reject)
}
