package snapshot

import (
	"time"

	"matchbook/domain/depth"
	"matchbook/domain/event"
	"matchbook/domain/orderbook"
)

type Snapshot struct {
	Symbol      string
	Seq         uint64
	Created     time.Time
	MarketPrice int64
	Bids        []event.Level
	Asks        []event.Level
	Orders      []OrderEntry
	Stops       []OrderEntry
}

// OrderEntry is a resting or parked order in priority order.
type OrderEntry struct {
	ID         uint64
	Buy        bool
	Price      int64
	StopPrice  int64
	Open       int64
	Conditions uint8
}

// Capture copies book state. seq is the last journal sequence applied.
func Capture(book *depth.Book, seq uint64, id func(orderbook.Order) uint64) *Snapshot {
	d := event.FromDepth(book.Symbol(), event.KindDepth, book.Depth())
	s := &Snapshot{
		Symbol:      book.Symbol(),
		Seq:         seq,
		Created:     time.Now(),
		MarketPrice: int64(book.MarketPrice()),
		Bids:        d.Bids,
		Asks:        d.Asks,
	}
	s.Orders = entries(s.Orders, book.Bids(), id)
	s.Orders = entries(s.Orders, book.Asks(), id)
	s.Stops = entries(s.Stops, book.StopBids(), id)
	s.Stops = entries(s.Stops, book.StopAsks(), id)
	return s
}

func entries(out []OrderEntry, m *orderbook.TrackerMap, id func(orderbook.Order) uint64) []OrderEntry {
	m.Each(func(_ orderbook.ComparablePrice, t *orderbook.OrderTracker) bool {
		o := t.Order()
		out = append(out, OrderEntry{
			ID:         id(o),
			Buy:        o.IsBuy(),
			Price:      int64(t.Price()),
			StopPrice:  int64(o.StopPrice()),
			Open:       int64(t.OpenQuantity()),
			Conditions: uint8(t.Conditions()),
		})
		return true
	})
	return out
}
