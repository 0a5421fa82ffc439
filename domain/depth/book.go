package depth

import "matchbook/domain/orderbook"

// Book is an order book with depth maintained alongside it.
type Book struct {
	*orderbook.OrderBook
	handler *Handler
}

// NewBook returns a book for symbol publishing size levels per side.
func NewBook(symbol string, size int) *Book {
	h := NewHandler(New(size))
	ob := orderbook.New(symbol)
	ob.AddHandler(h)
	return &Book{OrderBook: ob, handler: h}
}

func (b *Book) Depth() *Depth                { return b.handler.depth }
func (b *Book) SetDepthListener(l Listener)  { b.handler.SetListener(l) }
func (b *Book) SetBboListener(l BboListener) { b.handler.SetBboListener(l) }
