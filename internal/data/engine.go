package data

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"msgbus/internal/actor"
	"msgbus/internal/bus"
	"msgbus/internal/schema"
)

const tag = "DATA"

// Config controls the simulated feed.
type Config struct {
	Symbol     string
	Interval   time.Duration
	StartPrice schema.Price
	Step       schema.Price
}

// Engine periodically publishes bars to the bus.
type Engine struct {
	bus *bus.Bus
	cfg Config
	gen *Generator
}

var _ actor.Actor = (*Engine)(nil)

// NewEngine creates a simulated data engine.
func NewEngine(b *bus.Bus, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Engine{
		bus: b,
		cfg: cfg,
		gen: NewGenerator(cfg.Symbol, cfg.StartPrice, cfg.Step),
	}
}

func (e *Engine) Name() string {
	return tag
}

// Start publishes one bar immediately and then one per interval until aborted.
func (e *Engine) Start(ctx context.Context) []*actor.Task {
	return []*actor.Task{
		actor.Go(ctx, "data-feed", e.run),
	}
}

func (e *Engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		e.publish(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) publish(now time.Time) {
	bar := e.gen.Next(now)
	logs.Infof("[%s] publishing %s", tag, bar)
	if _, err := bus.Publish(e.bus, bar); err != nil {
		logs.Errorf("[%s] publish bar, err: %+v", tag, err)
	}
}
