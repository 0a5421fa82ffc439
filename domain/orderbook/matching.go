package orderbook

// unlimited disables the fill cap in createTrade.
const unlimited Quantity = -1

// deferredMatch is a candidate set aside during a matching pass.
type deferredMatch struct {
	key     ComparablePrice
	tracker *OrderTracker
}

// submit matches a live tracker and finishes its accept (or stop trigger)
// callback with the quantity filled by the submission.
func (b *OrderBook) submit(inbound *OrderTracker, notice *Callback) bool {
	matched := b.addOrder(inbound, inbound.order.Price())
	notice.Quantity = inbound.FilledQuantity()
	if inbound.ImmediateOrCancel() && !inbound.Filled() {
		b.queue(&Callback{
			Type:     CallbackCancel,
			Order:    inbound.order,
			Quantity: inbound.OpenQuantity(),
			Price:    inbound.price,
		})
	}
	return matched
}

// addOrder matches inbound at price and rests whatever remains.
func (b *OrderBook) addOrder(inbound *OrderTracker, price Price) bool {
	inbound.price = price
	buy := inbound.order.IsBuy()
	own, opposite := b.asks, b.bids
	if buy {
		own, opposite = b.bids, b.asks
	}

	var deferred []deferredMatch
	matched := b.matchOrder(inbound, price, opposite, &deferred)

	if inbound.OpenQuantity() > 0 && !inbound.ImmediateOrCancel() {
		own.insert(NewComparablePrice(buy, price), inbound)
		if b.checkDeferredAons(deferred, opposite, own) {
			matched = true
		}
	}
	return matched
}

// checkDeferredAons retries resting AON orders that were too large for the
// inbound order against the inbound side, now that the inbound order rests
// there.
func (b *OrderBook) checkDeferredAons(aons []deferredMatch, deferredTrackers, marketTrackers *TrackerMap) bool {
	matched := false
	var ignored []deferredMatch
	for _, aon := range aons {
		t := aon.tracker
		if t.Filled() || t.level == nil {
			continue
		}
		if b.matchOrder(t, aon.key.Price, marketTrackers, &ignored) {
			matched = true
		}
		if t.Filled() {
			deferredTrackers.erase(t)
		}
	}
	return matched
}

func (b *OrderBook) matchOrder(inbound *OrderTracker, price Price, current *TrackerMap, deferredAons *[]deferredMatch) bool {
	if inbound.AllOrNone() {
		return b.matchAonOrder(inbound, price, current, deferredAons)
	}
	return b.matchRegularOrder(inbound, price, current, deferredAons)
}

func (b *OrderBook) matchRegularOrder(inbound *OrderTracker, price Price, current *TrackerMap, deferredAons *[]deferredMatch) bool {
	matched := false
	var done []*OrderTracker

	current.Each(func(key ComparablePrice, t *OrderTracker) bool {
		if inbound.Filled() || !key.Matches(price) {
			return false
		}
		if t.AllOrNone() && t.OpenQuantity() > inbound.OpenQuantity() {
			*deferredAons = append(*deferredAons, deferredMatch{key: key, tracker: t})
			return true
		}
		if b.createTrade(inbound, t, unlimited) > 0 {
			matched = true
			if t.Filled() {
				done = append(done, t)
			}
		}
		return true
	})

	current.eraseAll(done)
	return matched
}

// matchAonOrder fills inbound completely or not at all. Candidates that
// cannot finish the order on their own are pooled; once the pool plus the
// current candidate covers the order, the pool is traded first (it has
// priority) and the candidate supplies the rest.
func (b *OrderBook) matchAonOrder(inbound *OrderTracker, price Price, current *TrackerMap, deferredAons *[]deferredMatch) bool {
	matched := false
	var done []*OrderTracker
	var pool []deferredMatch
	var poolQty Quantity

	current.Each(func(key ComparablePrice, t *OrderTracker) bool {
		if inbound.Filled() || !key.Matches(price) {
			return false
		}
		need := inbound.OpenQuantity()
		qty := t.OpenQuantity()

		if t.AllOrNone() {
			if qty > need {
				*deferredAons = append(*deferredAons, deferredMatch{key: key, tracker: t})
				return true
			}
			if need > qty+poolQty {
				pool = append(pool, deferredMatch{key: key, tracker: t})
				poolQty += qty
				return true
			}
			if !b.crossable(inbound, t) {
				return true
			}
			rest := need - qty
			if b.tryCreateDeferredTrades(inbound, pool, rest, rest, &done) != rest {
				return true
			}
			if b.createTrade(inbound, t, unlimited) > 0 {
				matched = true
				done = append(done, t)
			}
			return true
		}

		if need > qty+poolQty {
			pool = append(pool, deferredMatch{key: key, tracker: t})
			poolQty += qty
			return true
		}
		if !b.crossable(inbound, t) {
			return true
		}
		var minQty Quantity
		if need > qty {
			minQty = need - qty
		}
		traded := b.tryCreateDeferredTrades(inbound, pool, need, minQty, &done)
		if need <= qty+traded {
			if traded > 0 {
				matched = true
			}
			if b.createTrade(inbound, t, unlimited) > 0 {
				matched = true
			}
			if t.Filled() {
				done = append(done, t)
			}
		}
		return true
	})

	current.eraseAll(done)
	return matched
}

// tryCreateDeferredTrades plans fills against the pooled candidates, AON
// candidates all or nothing, and commits them only when the planned total
// lies in [minQty, maxQty]. Planned quantities are reserved on the
// candidates while planning and always released before returning, so an
// abandoned attempt leaves no trace.
func (b *OrderBook) tryCreateDeferredTrades(inbound *OrderTracker, pool []deferredMatch, maxQty, minQty Quantity, done *[]*OrderTracker) Quantity {
	plan := make([]Quantity, len(pool))
	var found Quantity

	for i, d := range pool {
		t := d.tracker
		qty := t.OpenQuantity()
		if !b.crossable(inbound, t) {
			qty = 0
		}
		if found+qty > maxQty {
			if t.AllOrNone() {
				qty = 0
			} else {
				qty = maxQty - found
			}
		}
		if qty > 0 {
			t.Reserve(qty)
		}
		plan[i] = qty
		found += qty
	}
	for i, d := range pool {
		if plan[i] > 0 {
			d.tracker.Release(plan[i])
		}
	}

	if found < minQty || found > maxQty {
		return 0
	}

	var traded Quantity
	for i, d := range pool {
		if plan[i] == 0 {
			continue
		}
		traded += b.createTrade(inbound, d.tracker, plan[i])
		if d.tracker.Filled() {
			*done = append(*done, d.tracker)
		}
	}
	return traded
}

// crossPrice resolves the trade price: the resting order's price, then the
// inbound order's, then the market price.
func (b *OrderBook) crossPrice(inbound, current *OrderTracker) (Price, bool) {
	switch {
	case current.price != MarketOrderPrice:
		return current.price, true
	case inbound.price != MarketOrderPrice:
		return inbound.price, true
	case b.marketPrice != MarketOrderPrice:
		return b.marketPrice, true
	}
	return MarketOrderPrice, false
}

func (b *OrderBook) crossable(inbound, current *OrderTracker) bool {
	_, ok := b.crossPrice(inbound, current)
	return ok
}

// createTrade fills inbound against current for at most maxQty (unlimited
// for no cap) and returns the traded quantity. Two market orders with no
// market price do not trade.
func (b *OrderBook) createTrade(inbound, current *OrderTracker, maxQty Quantity) Quantity {
	cross, ok := b.crossPrice(inbound, current)
	if !ok {
		return 0
	}

	fill := min(inbound.OpenQuantity(), current.OpenQuantity())
	if maxQty != unlimited {
		fill = min(fill, maxQty)
	}
	if fill <= 0 {
		return 0
	}

	inbound.Fill(fill)
	current.Fill(fill)
	b.setMarketPrice(cross)

	flags := NeitherFilled
	if inbound.Filled() {
		flags |= InboundFilled
	}
	if current.Filled() {
		flags |= MatchedFilled
	}
	b.queue(&Callback{
		Type:         CallbackFill,
		Order:        inbound.order,
		MatchedOrder: current.order,
		Quantity:     fill,
		Price:        cross,
		Flags:        flags,
		InboundPrice: inbound.price,
		MatchedPrice: current.price,
	})
	return fill
}
