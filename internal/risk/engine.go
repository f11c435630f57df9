package risk

import (
	"msgbus/internal/schema"
	"msgbus/internal/state"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Config defines simple risk limits. Zero disables a limit.
type Config struct {
	KillSwitch       bool            `json:"killSwitch" yaml:"killSwitch"`
	MaxOrderQty      schema.Quantity `json:"maxOrderQty" yaml:"maxOrderQty"`
	MaxOrderNotional schema.Notional `json:"maxOrderNotional" yaml:"maxOrderNotional"`
	MaxPosition      schema.Quantity `json:"maxPosition" yaml:"maxPosition"`
}

// StateView provides the current position snapshot.
type StateView struct {
	Position schema.Quantity
}

// Decision is the outcome of evaluating one order.
type Decision struct {
	Allow    bool
	Reason   schema.RiskReason
	Notional schema.Notional
	NextPos  schema.Quantity
}

// Engine evaluates risk decisions.
type Engine struct {
	cfg Config
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the limits the engine enforces.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate applies the configured checks to an order request.
func (e *Engine) Evaluate(order schema.OrderRequest, view StateView) Decision {
	decision := Decision{
		Allow:   true,
		Reason:  schema.RiskReasonNone,
		NextPos: view.Position,
	}

	if e.cfg.KillSwitch {
		return deny(decision, schema.RiskReasonKillSwitch)
	}

	if e.cfg.MaxOrderQty > 0 && order.Qty > e.cfg.MaxOrderQty {
		return deny(decision, schema.RiskReasonMaxQty)
	}

	notional, overflow := mulNotional(order.Price, order.Qty)
	if overflow {
		return deny(decision, schema.RiskReasonMaxNotional)
	}
	decision.Notional = notional
	if e.cfg.MaxOrderNotional > 0 && notional > e.cfg.MaxOrderNotional {
		return deny(decision, schema.RiskReasonMaxNotional)
	}

	nextPos := state.ApplySide(view.Position, order.Side, order.Qty)
	if e.cfg.MaxPosition > 0 && absQuantity(nextPos) > e.cfg.MaxPosition {
		return deny(decision, schema.RiskReasonPositionLimit)
	}
	decision.NextPos = nextPos

	return decision
}

func deny(d Decision, reason schema.RiskReason) Decision {
	d.Allow = false
	d.Reason = reason
	return d
}

func mulNotional(price schema.Price, qty schema.Quantity) (schema.Notional, bool) {
	p := int64(price)
	q := int64(qty)
	if p == 0 || q == 0 {
		return 0, false
	}
	if p < 0 {
		p = -p
	}
	if q < 0 {
		q = -q
	}
	if p > maxInt64/q {
		return 0, true
	}
	return schema.Notional(int64(price) * int64(qty)), false
}

func absQuantity(q schema.Quantity) schema.Quantity {
	if q < 0 {
		return -q
	}
	return q
}
