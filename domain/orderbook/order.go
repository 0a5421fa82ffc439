package orderbook

// Order is what the book needs from a submitted order. Side is fixed for the
// life of the order; price, stop price and quantity may be changed by the
// owner between calls (typically in reaction to a Replace callback).
//
// The book tells orders apart by identity (==), so implementations are
// normally pointer types.
type Order interface {
	IsBuy() bool
	// Price is the limit price, MarketOrderPrice for a market order.
	Price() Price
	// StopPrice is the stop trigger, NoStopPrice when absent.
	StopPrice() Price
	Quantity() Quantity
}

// IsLimit reports whether o carries a limit price.
func IsLimit(o Order) bool {
	return o.Price() != MarketOrderPrice
}
