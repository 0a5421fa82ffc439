package order

import (
	"fmt"

	"matchbook/domain/orderbook"
)

// State is where an order is in its lifecycle.
type State uint8

const (
	StateNew State = iota
	StateAccepted
	StateComplete
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateAccepted:
		return "ACCEPTED"
	case StateComplete:
		return "COMPLETE"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// SimpleOrder is the reference order type. It satisfies orderbook.Order and
// is kept current by a Lifecycle handler.
type SimpleOrder struct {
	ID         uint64
	Buy        bool
	LimitPrice orderbook.Price
	Stop       orderbook.Price
	Qty        orderbook.Quantity
	Conditions orderbook.OrderConditions

	FilledQty  orderbook.Quantity
	FilledCost orderbook.Cost
	LastFillID uint64
	State      State
}

// New returns a limit (price > 0) or market order without a stop.
func New(id uint64, buy bool, price orderbook.Price, qty orderbook.Quantity) *SimpleOrder {
	return &SimpleOrder{ID: id, Buy: buy, LimitPrice: price, Qty: qty}
}

// NewStop returns an order activated once the market reaches stop.
func NewStop(id uint64, buy bool, price, stop orderbook.Price, qty orderbook.Quantity) *SimpleOrder {
	return &SimpleOrder{ID: id, Buy: buy, LimitPrice: price, Stop: stop, Qty: qty}
}

func (o *SimpleOrder) IsBuy() bool                  { return o.Buy }
func (o *SimpleOrder) Price() orderbook.Price       { return o.LimitPrice }
func (o *SimpleOrder) StopPrice() orderbook.Price   { return o.Stop }
func (o *SimpleOrder) Quantity() orderbook.Quantity { return o.Qty }

// OpenQuantity is the part of the order not yet filled.
func (o *SimpleOrder) OpenQuantity() orderbook.Quantity {
	if o.FilledQty < o.Qty {
		return o.Qty - o.FilledQty
	}
	return 0
}

func (o *SimpleOrder) String() string {
	side := "SELL"
	if o.Buy {
		side = "BUY"
	}
	return fmt.Sprintf("#%d %s %d@%d filled=%d %s", o.ID, side, o.Qty, o.LimitPrice, o.FilledQty, o.State)
}

// Accept moves a new order to accepted.
func (o *SimpleOrder) Accept() {
	if o.State == StateNew {
		o.State = StateAccepted
	}
}

// Fill records a trade against the order.
func (o *SimpleOrder) Fill(qty orderbook.Quantity, cost orderbook.Cost, fillID uint64) {
	o.FilledQty += qty
	o.FilledCost += cost
	o.LastFillID = fillID
	if o.OpenQuantity() == 0 {
		o.State = StateComplete
	}
}

// Cancel moves any order that has not completed to cancelled.
func (o *SimpleOrder) Cancel() {
	if o.State != StateComplete {
		o.State = StateCancelled
	}
}

// Replace applies an accepted size and price change.
func (o *SimpleOrder) Replace(delta orderbook.Quantity, price orderbook.Price) {
	if o.State == StateAccepted {
		o.Qty += delta
		o.LimitPrice = price
	}
}
