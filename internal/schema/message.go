package schema

import (
	"fmt"

	"github.com/google/uuid"
)

// Bar is a market data sample for one symbol.
type Bar struct {
	ID      uuid.UUID
	TsEvent int64
	Symbol  string
	Close   Price
}

func (b Bar) String() string {
	return fmt.Sprintf("Bar{id: %s, ts: %d, symbol: %s, close: %d}", b.ID, b.TsEvent, b.Symbol, b.Close)
}

// OrderRequest is an order produced by a strategy.
type OrderRequest struct {
	ID     uuid.UUID
	Symbol string
	Side   OrderSide
	Price  Price
	Qty    Quantity
}

func (o OrderRequest) String() string {
	return fmt.Sprintf("OrderRequest{id: %s, symbol: %s, side: %s, price: %d, qty: %d}", o.ID, o.Symbol, o.Side, o.Price, o.Qty)
}

// FillEvent reports an executed order.
type FillEvent struct {
	OrderID uuid.UUID
	Symbol  string
	Side    OrderSide
	Price   Price
	Qty     Quantity
}

func (f FillEvent) String() string {
	return fmt.Sprintf("FillEvent{order: %s, symbol: %s, side: %s, price: %d, qty: %d}", f.OrderID, f.Symbol, f.Side, f.Price, f.Qty)
}

// OrderReject reports an order denied before execution.
type OrderReject struct {
	OrderID uuid.UUID
	Symbol  string
	Reason  RiskReason
}

func (r OrderReject) String() string {
	return fmt.Sprintf("OrderReject{order: %s, symbol: %s, reason: %s}", r.OrderID, r.Symbol, r.Reason)
}
