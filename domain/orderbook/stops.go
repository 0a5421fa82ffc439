package orderbook

// stopKey orders a stop map by trigger: buy stops lowest stop first, sell
// stops highest stop first, so a scan can stop at the first stop the market
// has not reached.
func stopKey(buy bool, stop Price) ComparablePrice {
	return ComparablePrice{Buy: !buy, Price: stop}
}

// addStopOrder parks t if its stop has not been reached. With no market
// price established every stop counts as reached.
func (b *OrderBook) addStopOrder(t *OrderTracker) bool {
	buy := t.order.IsBuy()
	stop := t.order.StopPrice()
	if b.marketPrice == MarketOrderPrice {
		return false
	}
	if buy && stop <= b.marketPrice {
		return false
	}
	if !buy && stop >= b.marketPrice {
		return false
	}

	m := b.stopAsks
	if buy {
		m = b.stopBids
	}
	t.stopped = true
	m.insert(stopKey(buy, stop), t)
	return true
}

func (b *OrderBook) setMarketPrice(price Price) {
	old := b.marketPrice
	b.marketPrice = price
	if old == MarketOrderPrice || price > old {
		b.checkStopOrders(true, price)
	}
	if old == MarketOrderPrice || price < old {
		b.checkStopOrders(false, price)
	}
}

// checkStopOrders moves every stop on one side reached by price into the
// pending list.
func (b *OrderBook) checkStopOrders(buy bool, price Price) {
	m := b.stopAsks
	if buy {
		m = b.stopBids
	}

	var triggered []*OrderTracker
	m.Each(func(key ComparablePrice, t *OrderTracker) bool {
		if buy && key.Price > price {
			return false
		}
		if !buy && key.Price < price {
			return false
		}
		triggered = append(triggered, t)
		return true
	})

	for _, t := range triggered {
		m.erase(t)
		t.stopped = false
		b.pending = append(b.pending, t)
	}
}

// submitPending submits triggered stops until none are left. A submission
// can trigger further stops, which join the back of the list.
func (b *OrderBook) submitPending() {
	for len(b.pending) > 0 {
		batch := b.pending
		b.pending = nil
		for _, t := range batch {
			notice := &Callback{Type: CallbackStopTrigger, Order: t.order}
			b.queue(notice)
			b.submit(t, notice)
		}
	}
}
