package orderbook

// Price is an integer price in ticks. MarketOrderPrice (0) is the market
// sentinel: an order at that price has no limit.
type Price int64

// Quantity is an order or level size in lots.
type Quantity int64

// Cost is price times quantity.
type Cost int64

const (
	// MarketOrderPrice marks an order with no limit price.
	MarketOrderPrice Price = 0
	// PriceUnchanged keeps the current price on Replace.
	PriceUnchanged Price = 0
	// NoStopPrice marks an order without a stop trigger.
	NoStopPrice Price = 0
)

// ComparablePrice orders prices by priority on one side of the book.
// Bids sort higher prices first, asks lower prices first, and the market
// sentinel sorts ahead of every limit price on either side.
type ComparablePrice struct {
	Buy   bool
	Price Price
}

// NewComparablePrice returns the priority key for price on the given side.
func NewComparablePrice(buy bool, price Price) ComparablePrice {
	return ComparablePrice{Buy: buy, Price: price}
}

// IsMarket reports whether the key carries the market sentinel.
func (c ComparablePrice) IsMarket() bool {
	return c.Price == MarketOrderPrice
}

// Before reports whether c has strictly better priority than other.
// Two market prices tie.
func (c ComparablePrice) Before(other ComparablePrice) bool {
	if c.Price == MarketOrderPrice {
		return other.Price != MarketOrderPrice
	}
	if other.Price == MarketOrderPrice {
		return false
	}
	if c.Buy {
		return other.Price < c.Price
	}
	return c.Price < other.Price
}

// Compare returns -1 when c sorts first, 1 when other sorts first and 0 on a
// priority tie.
func (c ComparablePrice) Compare(other ComparablePrice) int {
	switch {
	case c.Before(other):
		return -1
	case other.Before(c):
		return 1
	default:
		return 0
	}
}

// Matches reports whether a resting order keyed by c can trade against an
// inbound order on the opposite side at rhs.
func (c ComparablePrice) Matches(rhs Price) bool {
	if c.Price == rhs {
		return true
	}
	if c.Price == MarketOrderPrice || rhs == MarketOrderPrice {
		return true
	}
	if c.Buy {
		return rhs < c.Price
	}
	return c.Price < rhs
}
