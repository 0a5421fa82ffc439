package orderbook

// OrderBook matches orders for a single instrument.
//
// The book is not safe for concurrent use. Listeners and handlers may call
// back into the book; their callbacks are queued behind the ones already
// being delivered.
type OrderBook struct {
	symbol string

	bids     *TrackerMap
	asks     *TrackerMap
	stopBids *TrackerMap
	stopAsks *TrackerMap

	marketPrice Price
	pending     []*OrderTracker

	callbacks         []*Callback
	handlingCallbacks bool

	handlers      []Handler
	orderListener OrderListener
	tradeListener TradeListener
	bookListener  BookListener
}

// New returns an empty book for symbol.
func New(symbol string) *OrderBook {
	return &OrderBook{
		symbol:   symbol,
		bids:     newTrackerMap(),
		asks:     newTrackerMap(),
		stopBids: newTrackerMap(),
		stopAsks: newTrackerMap(),
	}
}

func (b *OrderBook) Symbol() string        { return b.symbol }
func (b *OrderBook) Bids() *TrackerMap     { return b.bids }
func (b *OrderBook) Asks() *TrackerMap     { return b.asks }
func (b *OrderBook) StopBids() *TrackerMap { return b.stopBids }
func (b *OrderBook) StopAsks() *TrackerMap { return b.stopAsks }
func (b *OrderBook) MarketPrice() Price    { return b.marketPrice }

// AddHandler registers h to see every callback ahead of the listeners.
func (b *OrderBook) AddHandler(h Handler) {
	if h != nil {
		b.handlers = append(b.handlers, h)
	}
}

func (b *OrderBook) SetOrderListener(l OrderListener) { b.orderListener = l }
func (b *OrderBook) SetTradeListener(l TradeListener) { b.tradeListener = l }
func (b *OrderBook) SetBookListener(l BookListener)   { b.bookListener = l }

// Add submits order and reports whether any quantity traded.
func (b *OrderBook) Add(order Order, conditions OrderConditions) bool {
	matched := false

	if order.Quantity() <= 0 {
		b.queue(&Callback{Type: CallbackReject, Order: order, Reason: ReasonSizeNotPositive})
	} else {
		accept := &Callback{Type: CallbackAccept, Order: order}
		b.queue(accept)

		inbound := NewOrderTracker(order, conditions)
		if order.StopPrice() != NoStopPrice && b.addStopOrder(inbound) {
			accept.Stopped = true
		} else {
			matched = b.submit(inbound, accept)
		}
		b.submitPending()
		b.queue(&Callback{Type: CallbackBookUpdate})
	}

	b.CallbackNow()
	return matched
}

// Cancel removes a resting or parked order.
func (b *OrderBook) Cancel(order Order) {
	t, m := b.findOnMarket(order)
	if t == nil {
		t, m = b.findStopped(order)
	}
	if t == nil {
		b.queue(&Callback{Type: CallbackCancelReject, Order: order, Reason: ReasonNotFound})
	} else {
		open := t.OpenQuantity()
		m.erase(t)
		b.queue(&Callback{
			Type:     CallbackCancel,
			Order:    order,
			Quantity: open,
			Price:    t.price,
			Stopped:  t.stopped,
		})
		b.queue(&Callback{Type: CallbackBookUpdate})
	}
	b.CallbackNow()
}

// Replace changes the size of a resting order by sizeDelta and moves it to
// newPrice (PriceUnchanged keeps its price). The order loses time priority
// and may trade if the new price crosses.
func (b *OrderBook) Replace(order Order, sizeDelta Quantity, newPrice Price) bool {
	matched := false

	t, m := b.findOnMarket(order)
	if t == nil {
		b.queue(&Callback{Type: CallbackReplaceReject, Order: order, Reason: ReasonNotFound})
		b.CallbackNow()
		return false
	}

	price := newPrice
	if price == PriceUnchanged {
		price = t.price
	}
	open := t.OpenQuantity()
	if sizeDelta < 0 && open < -sizeDelta {
		sizeDelta = -open
		if sizeDelta == 0 {
			b.queue(&Callback{Type: CallbackReplaceReject, Order: order, Reason: ReasonAlreadyFilled})
			b.CallbackNow()
			return false
		}
	}

	b.queue(&Callback{
		Type:     CallbackReplace,
		Order:    order,
		Quantity: open,
		Delta:    sizeDelta,
		Price:    price,
		OldPrice: t.price,
	})
	t.ChangeQuantity(sizeDelta)
	m.erase(t)

	if t.OpenQuantity() == 0 {
		b.queue(&Callback{Type: CallbackCancel, Order: order, Price: price})
	} else if b.addOrder(t, price) {
		matched = true
	}
	b.submitPending()
	b.queue(&Callback{Type: CallbackBookUpdate})

	b.CallbackNow()
	return matched
}

// SetMarketPrice seeds the market price, activating any stop orders it
// reaches.
func (b *OrderBook) SetMarketPrice(price Price) {
	b.setMarketPrice(price)
	if len(b.pending) > 0 {
		b.submitPending()
		b.queue(&Callback{Type: CallbackBookUpdate})
	}
	b.CallbackNow()
}

// CallbackNow delivers queued callbacks. Calls made while callbacks are
// being delivered only queue; the outermost call drains until empty.
func (b *OrderBook) CallbackNow() {
	if b.handlingCallbacks {
		return
	}
	b.handlingCallbacks = true
	defer func() { b.handlingCallbacks = false }()

	for len(b.callbacks) > 0 {
		batch := b.callbacks
		b.callbacks = nil
		for _, cb := range batch {
			b.perform(cb)
		}
	}
}

func (b *OrderBook) queue(cb *Callback) {
	b.callbacks = append(b.callbacks, cb)
}

func (b *OrderBook) perform(cb *Callback) {
	for _, h := range b.handlers {
		h.HandleCallback(b, cb)
	}

	switch cb.Type {
	case CallbackAccept:
		if b.orderListener != nil {
			b.orderListener.OnAccept(cb.Order, cb.Quantity)
		}
	case CallbackReject:
		if b.orderListener != nil {
			b.orderListener.OnReject(cb.Order, cb.Reason)
		}
	case CallbackFill:
		cost := cb.Cost()
		if b.orderListener != nil {
			b.orderListener.OnFill(cb.Order, cb.MatchedOrder, cb.Quantity, cost,
				cb.InboundFilled(), cb.MatchedFilled())
		}
		if b.tradeListener != nil {
			b.tradeListener.OnTrade(b, cb.Quantity, cost)
		}
	case CallbackCancel:
		if b.orderListener != nil {
			b.orderListener.OnCancel(cb.Order, cb.Quantity)
		}
	case CallbackCancelReject:
		if b.orderListener != nil {
			b.orderListener.OnCancelReject(cb.Order, cb.Reason)
		}
	case CallbackReplace:
		if b.orderListener != nil {
			b.orderListener.OnReplace(cb.Order, cb.Quantity, cb.Quantity+cb.Delta, cb.Price)
		}
	case CallbackReplaceReject:
		if b.orderListener != nil {
			b.orderListener.OnReplaceReject(cb.Order, cb.Reason)
		}
	case CallbackStopTrigger:
		if sl, ok := b.orderListener.(StopListener); ok {
			sl.OnStopTrigger(cb.Order, cb.Quantity)
		}
	case CallbackBookUpdate:
		if b.bookListener != nil {
			b.bookListener.OnOrderBookChange(b)
		}
	}
}

// findOnMarket locates order among resting trackers on its side. The lookup
// goes straight to the order's price level, so an owner must apply a
// replaced price before cancelling or replacing again.
func (b *OrderBook) findOnMarket(order Order) (*OrderTracker, *TrackerMap) {
	m := b.asks
	if order.IsBuy() {
		m = b.bids
	}
	if t := m.find(NewComparablePrice(order.IsBuy(), order.Price()), order); t != nil {
		return t, m
	}
	return nil, nil
}

func (b *OrderBook) findStopped(order Order) (*OrderTracker, *TrackerMap) {
	m := b.stopAsks
	if order.IsBuy() {
		m = b.stopBids
	}
	if t := m.find(stopKey(order.IsBuy(), order.StopPrice()), order); t != nil {
		return t, m
	}
	return nil, nil
}
