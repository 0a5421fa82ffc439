package orderbook

// OrderListener receives per-order events.
type OrderListener interface {
	OnAccept(order Order, quantity Quantity)
	OnReject(order Order, reason string)
	OnFill(order, matchedOrder Order, quantity Quantity, cost Cost, inboundFilled, matchedFilled bool)
	OnCancel(order Order, quantity Quantity)
	OnCancelReject(order Order, reason string)
	OnReplace(order Order, currentQuantity, newQuantity Quantity, newPrice Price)
	OnReplaceReject(order Order, reason string)
}

// StopListener is implemented by order listeners that want to know when a
// parked stop order goes live.
type StopListener interface {
	OnStopTrigger(order Order, quantity Quantity)
}

// TradeListener receives one event per executed trade.
type TradeListener interface {
	OnTrade(book *OrderBook, quantity Quantity, cost Cost)
}

// BookListener is told once per public call that the book changed.
type BookListener interface {
	OnOrderBookChange(book *OrderBook)
}

// Handler sees every callback before listeners do. Handlers maintain state
// derived from the book (depth, order lifecycle) and run in registration
// order.
type Handler interface {
	HandleCallback(book *OrderBook, cb *Callback)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(book *OrderBook, cb *Callback)

func (f HandlerFunc) HandleCallback(book *OrderBook, cb *Callback) { f(book, cb) }

// NopOrderListener implements OrderListener with no-ops, for embedding.
type NopOrderListener struct{}

func (NopOrderListener) OnAccept(Order, Quantity)                        {}
func (NopOrderListener) OnReject(Order, string)                          {}
func (NopOrderListener) OnFill(Order, Order, Quantity, Cost, bool, bool) {}
func (NopOrderListener) OnCancel(Order, Quantity)                        {}
func (NopOrderListener) OnCancelReject(Order, string)                    {}
func (NopOrderListener) OnReplace(Order, Quantity, Quantity, Price)      {}
func (NopOrderListener) OnReplaceReject(Order, string)                   {}
