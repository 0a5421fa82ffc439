package depth

import "matchbook/domain/orderbook"

// Listener is told when any published level changed during a book call.
type Listener interface {
	OnDepthChange(book *orderbook.OrderBook, depth *Depth)
}

// BboListener is told when the best bid or offer changed during a book
// call.
type BboListener interface {
	OnBboChange(book *orderbook.OrderBook, depth *Depth)
}

// Handler keeps a Depth in step with an order book's callbacks and
// publishes it on every book update.
type Handler struct {
	depth *Depth
	// orders accepted already filled, whose fills consume the ignore count
	ignoredBid orderbook.Order
	ignoredAsk orderbook.Order

	listener    Listener
	bboListener BboListener
}

// NewHandler returns a handler maintaining d.
func NewHandler(d *Depth) *Handler {
	return &Handler{depth: d}
}

func (h *Handler) Depth() *Depth                { return h.depth }
func (h *Handler) SetListener(l Listener)       { h.listener = l }
func (h *Handler) SetBboListener(l BboListener) { h.bboListener = l }

// HandleCallback implements orderbook.Handler.
func (h *Handler) HandleCallback(book *orderbook.OrderBook, cb *orderbook.Callback) {
	switch cb.Type {
	case orderbook.CallbackAccept, orderbook.CallbackStopTrigger:
		if !cb.Stopped {
			h.onAccept(cb.Order, cb.Quantity)
		}
	case orderbook.CallbackFill:
		h.onFill(cb.MatchedOrder, cb.MatchedPrice, cb.Quantity, cb.MatchedFilled())
		h.onFill(cb.Order, cb.InboundPrice, cb.Quantity, cb.InboundFilled())
	case orderbook.CallbackCancel:
		if !cb.Stopped && cb.Price != orderbook.MarketOrderPrice {
			h.depth.CloseOrder(cb.Price, cb.Quantity, cb.Order.IsBuy())
		}
	case orderbook.CallbackReplace:
		h.onReplace(cb)
	case orderbook.CallbackBookUpdate:
		h.publish(book)
	}
}

func (h *Handler) onAccept(order orderbook.Order, filled orderbook.Quantity) {
	if !orderbook.IsLimit(order) {
		return
	}
	buy := order.IsBuy()
	if filled == order.Quantity() {
		h.depth.IgnoreFillQuantity(filled, buy)
		if buy {
			h.ignoredBid = order
		} else {
			h.ignoredAsk = order
		}
		return
	}
	h.depth.AddOrder(order.Price(), order.Quantity(), buy)
}

func (h *Handler) onFill(order orderbook.Order, price orderbook.Price, qty orderbook.Quantity, filled bool) {
	if price == orderbook.MarketOrderPrice {
		return
	}
	buy := order.IsBuy()
	ignored := &h.ignoredAsk
	if buy {
		ignored = &h.ignoredBid
	}
	if *ignored != nil && *ignored != order {
		// another order on the side traded while the ignore is pending
		if filled {
			h.depth.CloseOrder(price, qty, buy)
		} else {
			h.depth.ChangeOrderQuantity(price, -qty, buy)
		}
		return
	}
	h.depth.FillOrder(price, qty, filled, buy)
	if h.depth.IgnoredFillQuantity(buy) == 0 {
		*ignored = nil
	}
}

func (h *Handler) onReplace(cb *orderbook.Callback) {
	buy := cb.Order.IsBuy()
	newQty := cb.Quantity + cb.Delta
	switch {
	case cb.OldPrice == orderbook.MarketOrderPrice && cb.Price == orderbook.MarketOrderPrice:
	case cb.OldPrice == orderbook.MarketOrderPrice:
		h.depth.AddOrder(cb.Price, newQty, buy)
	default:
		h.depth.ReplaceOrder(cb.OldPrice, cb.Price, cb.Quantity, newQty, buy)
	}
}

func (h *Handler) publish(book *orderbook.OrderBook) {
	if h.depth.Changed() && h.listener != nil {
		h.listener.OnDepthChange(book, h.depth)
	}
	if h.bboListener != nil && h.depth.BboChanged() {
		h.bboListener.OnBboChange(book, h.depth)
	}
	h.depth.Published()
}
