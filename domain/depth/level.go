package depth

import "matchbook/domain/orderbook"

// Level aggregates the resting orders at one price.
type Level struct {
	price        orderbook.Price
	orderCount   int
	aggregateQty orderbook.Quantity
	excess       bool
	lastChange   uint64
}

func (l *Level) Price() orderbook.Price           { return l.price }
func (l *Level) OrderCount() int                  { return l.orderCount }
func (l *Level) AggregateQty() orderbook.Quantity { return l.aggregateQty }
func (l *Level) IsExcess() bool                   { return l.excess }
func (l *Level) LastChange() uint64               { return l.lastChange }
func (l *Level) ChangedSince(change uint64) bool  { return l.lastChange > change }

func (l *Level) addOrder(qty orderbook.Quantity) {
	l.orderCount++
	l.aggregateQty += qty
}

// closeOrder removes one order holding qty and reports whether the level is
// now empty.
func (l *Level) closeOrder(qty orderbook.Quantity) bool {
	if l.orderCount == 0 {
		orderbook.Invariant(orderbook.CodeDepthLevelEmpty, "close at %d with no orders", l.price)
	}
	if qty > l.aggregateQty {
		orderbook.Invariant(orderbook.CodeDepthOverclose, "close %d at %d holding %d", qty, l.price, l.aggregateQty)
	}
	if l.orderCount == 1 {
		l.orderCount = 0
		l.aggregateQty = 0
		return true
	}
	l.orderCount--
	l.aggregateQty -= qty
	return false
}

func (l *Level) changeQty(delta orderbook.Quantity) {
	if delta < 0 && -delta > l.aggregateQty {
		orderbook.Invariant(orderbook.CodeDepthOverclose, "decrease %d at %d holding %d", -delta, l.price, l.aggregateQty)
	}
	l.aggregateQty += delta
}
