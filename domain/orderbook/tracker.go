package orderbook

// OrderTracker carries the matching state of one order while the book owns
// it. Quantities are tracked here rather than on the order so the owner's
// view is only updated through callbacks.
type OrderTracker struct {
	order      Order
	conditions OrderConditions

	quantity Quantity
	filled   Quantity
	reserved Quantity

	// price is the limit price the tracker was last submitted at. It can
	// differ from order.Price() until the owner applies a Replace.
	price Price
	// stopped is set while the tracker is parked in a stop map.
	stopped bool

	// intrusive FIFO links, owned by priceLevel
	level *priceLevel
	next  *OrderTracker
	prev  *OrderTracker
}

// NewOrderTracker wraps order for matching.
func NewOrderTracker(order Order, conditions OrderConditions) *OrderTracker {
	return &OrderTracker{
		order:      order,
		conditions: conditions,
		quantity:   order.Quantity(),
		price:      order.Price(),
	}
}

func (t *OrderTracker) Order() Order                { return t.order }
func (t *OrderTracker) Conditions() OrderConditions { return t.conditions }
func (t *OrderTracker) AllOrNone() bool             { return t.conditions.AllOrNone() }
func (t *OrderTracker) ImmediateOrCancel() bool     { return t.conditions.ImmediateOrCancel() }
func (t *OrderTracker) Price() Price                { return t.price }
func (t *OrderTracker) Reserved() Quantity          { return t.reserved }

// OpenQuantity is the quantity still available to match.
func (t *OrderTracker) OpenQuantity() Quantity {
	return t.quantity - t.filled - t.reserved
}

// FilledQuantity is the quantity already traded.
func (t *OrderTracker) FilledQuantity() Quantity {
	return t.filled
}

// Filled reports whether nothing is left to trade. Reservations do not count
// as fills.
func (t *OrderTracker) Filled() bool {
	return t.quantity == t.filled
}

// Reserve earmarks n of the open quantity and returns what stays open.
func (t *OrderTracker) Reserve(n Quantity) Quantity {
	if n < 0 || n > t.OpenQuantity() {
		invariant(CodeTrackerOverReserve, "reserve %d with open %d", n, t.OpenQuantity())
	}
	t.reserved += n
	return t.OpenQuantity()
}

// Release returns n previously reserved back to open quantity.
func (t *OrderTracker) Release(n Quantity) {
	if n < 0 || n > t.reserved {
		invariant(CodeTrackerOverReserve, "release %d with reserved %d", n, t.reserved)
	}
	t.reserved -= n
}

// ChangeQuantity adjusts the order size by delta.
func (t *OrderTracker) ChangeQuantity(delta Quantity) {
	if delta < 0 && t.OpenQuantity() < -delta {
		invariant(CodeTrackerNegative, "change %d with open %d", delta, t.OpenQuantity())
	}
	t.quantity += delta
}

// Fill records qty as traded.
func (t *OrderTracker) Fill(qty Quantity) {
	if qty < 0 || qty > t.OpenQuantity() {
		invariant(CodeTrackerOverfill, "fill %d with open %d", qty, t.OpenQuantity())
	}
	t.filled += qty
}
