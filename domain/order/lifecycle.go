package order

import (
	"matchbook/domain/depth"
	"matchbook/domain/orderbook"
	"matchbook/infra/sequence"
)

// Lifecycle applies book callbacks to SimpleOrders. Fill ids come from the
// lifecycle's own sequencer. Callbacks for other order types are ignored.
type Lifecycle struct {
	fills *sequence.Sequencer
}

// NewLifecycle returns a lifecycle issuing fill ids from fills, or from a
// fresh sequencer when fills is nil.
func NewLifecycle(fills *sequence.Sequencer) *Lifecycle {
	if fills == nil {
		fills = sequence.New(0)
	}
	return &Lifecycle{fills: fills}
}

// HandleCallback implements orderbook.Handler.
func (l *Lifecycle) HandleCallback(_ *orderbook.OrderBook, cb *orderbook.Callback) {
	switch cb.Type {
	case orderbook.CallbackAccept:
		if o, ok := cb.Order.(*SimpleOrder); ok {
			o.Accept()
		}
	case orderbook.CallbackFill:
		id := l.fills.Next()
		cost := cb.Cost()
		if o, ok := cb.MatchedOrder.(*SimpleOrder); ok {
			o.Fill(cb.Quantity, cost, id)
		}
		if o, ok := cb.Order.(*SimpleOrder); ok {
			o.Fill(cb.Quantity, cost, id)
		}
	case orderbook.CallbackCancel:
		if o, ok := cb.Order.(*SimpleOrder); ok {
			o.Cancel()
		}
	case orderbook.CallbackReplace:
		if o, ok := cb.Order.(*SimpleOrder); ok {
			o.Replace(cb.Delta, cb.Price)
		}
	}
}

// NewBook returns a depth book whose SimpleOrders are kept current. Depth
// is updated before the lifecycle so it sees prices from before a replace.
func NewBook(symbol string, depthSize int) (*depth.Book, *Lifecycle) {
	b := depth.NewBook(symbol, depthSize)
	l := NewLifecycle(nil)
	b.AddHandler(l)
	return b, l
}
