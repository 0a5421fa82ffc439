package orderbook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/order"
	ob "matchbook/domain/orderbook"
)

func TestLimitMatchAtRestingPrice(t *testing.T) {
	f := newFixture(t)
	b0 := f.buy(1250, 100)
	a0 := f.sell(1251, 100)
	a1 := f.sell(1252, 100)
	f.requireDepth(
		[]lvl{{1250, 1, 100}},
		[]lvl{{1251, 1, 100}, {1252, 1, 100}},
	)

	f.rec.reset()
	b1 := f.order(true, 1251, 100)
	require.True(t, f.add(b1, ob.NoConditions))

	assert.Equal(t, []trade{{100, 125100}}, f.rec.trades)
	assert.Equal(t, []string{"accept #4 100", "fill #4 #2 100 125100"}, f.rec.events)
	assert.Equal(t, 1, f.rec.updates)
	f.requireDepth([]lvl{{1250, 1, 100}}, []lvl{{1252, 1, 100}})
	f.requireResting(f.book.Bids(), b0)
	f.requireResting(f.book.Asks(), a1)

	assert.Equal(t, order.StateComplete, a0.State)
	assert.Equal(t, order.StateComplete, b1.State)
	assert.Equal(t, ob.Cost(125100), b1.FilledCost)
	assert.Equal(t, ob.Price(1251), f.book.MarketPrice())
}

func TestAonSkippedWhenTooLarge(t *testing.T) {
	f := newFixture(t)
	a0 := f.order(false, 1251, 100)
	a1 := f.order(false, 1251, 200)
	f.add(a0, ob.AllOrNone)
	f.add(a1, ob.AllOrNone)

	b := f.buy(1251, 100)
	assert.Equal(t, order.StateComplete, b.State)
	assert.Equal(t, order.StateComplete, a0.State)
	assert.Equal(t, ob.Quantity(0), a1.FilledQty)
	f.requireResting(f.book.Asks(), a1)
	f.requireDepth(nil, []lvl{{1251, 1, 200}})
}

func TestStopCascadeWithinOneCall(t *testing.T) {
	f := newFixture(t)
	f.book.SetMarketPrice(55)
	f.sell(57, 100)
	f.sell(58, 100)

	s := f.stop(true, ob.MarketOrderPrice, 56, 50)
	f.add(s, ob.NoConditions)
	f.requireResting(f.book.StopBids(), s)
	assert.Equal(t, order.StateAccepted, s.State)

	f.rec.reset()
	b := f.order(true, 57, 50)
	require.True(t, f.add(b, ob.NoConditions))

	assert.Len(t, f.rec.trades, 2)
	assert.Equal(t, 1, f.rec.updates)
	assert.Equal(t, []string{
		"accept #4 50",
		"fill #4 #1 50 2850",
		"trigger #3 50",
		"fill #3 #1 50 2850",
	}, f.rec.events)
	assert.Equal(t, 0, f.book.StopBids().Len())
	assert.Equal(t, order.StateComplete, s.State)
	assert.Equal(t, ob.Price(57), f.book.MarketPrice())
	f.requireDepth(nil, []lvl{{58, 1, 100}})
}

func TestReplaceMovesOrderBehindLevel(t *testing.T) {
	f := newFixture(t)
	b0 := f.buy(1251, 140)
	b1 := f.buy(1250, 120)
	f.requireDepth([]lvl{{1251, 1, 140}, {1250, 1, 120}}, nil)

	f.rec.reset()
	assert.False(t, f.book.Replace(b1, 0, 1251))
	assert.Equal(t, []string{"replace #2 120->120 @1251"}, f.rec.events)
	assert.Equal(t, ob.Price(1251), b1.LimitPrice)

	f.requireResting(f.book.Bids(), b0, b1)
	f.requireDepth([]lvl{{1251, 2, 260}}, nil)
}

func TestReplaceSizeChanges(t *testing.T) {
	f := newFixture(t)
	b := f.buy(100, 50)

	f.book.Replace(b, 25, ob.PriceUnchanged)
	assert.Equal(t, ob.Quantity(75), b.Qty)
	f.requireDepth([]lvl{{100, 1, 75}}, nil)

	f.book.Replace(b, -30, ob.PriceUnchanged)
	assert.Equal(t, ob.Quantity(45), b.Qty)
	f.requireDepth([]lvl{{100, 1, 45}}, nil)

	f.sell(100, 15)
	assert.Equal(t, ob.Quantity(30), b.OpenQuantity())

	// shrinking by more than is open cancels the remainder
	f.rec.reset()
	f.book.Replace(b, -100, ob.PriceUnchanged)
	assert.Equal(t, []string{"replace #1 30->0 @100", "cancel #1 0"}, f.rec.events)
	assert.Equal(t, order.StateCancelled, b.State)
	assert.Equal(t, 0, f.book.Bids().Len())
	f.requireDepth(nil, nil)
}

func TestReplaceCrossesSpread(t *testing.T) {
	f := newFixture(t)
	a := f.sell(105, 100)
	b := f.buy(100, 60)

	require.True(t, f.book.Replace(b, 0, 105))
	assert.Equal(t, order.StateComplete, b.State)
	assert.Equal(t, ob.Quantity(40), a.OpenQuantity())
	f.requireDepth(nil, []lvl{{105, 1, 40}})
}

func TestRejects(t *testing.T) {
	f := newFixture(t)
	zero := f.order(true, 100, 0)
	assert.False(t, f.add(zero, ob.NoConditions))

	ghost := f.order(true, 100, 10)
	f.book.Cancel(ghost)
	f.book.Replace(ghost, 5, 101)

	assert.Equal(t, []string{
		"reject #1 " + ob.ReasonSizeNotPositive,
		"cancel-reject #2 " + ob.ReasonNotFound,
		"replace-reject #2 " + ob.ReasonNotFound,
	}, f.rec.events)
	assert.Equal(t, 0, f.rec.updates)
	assert.Equal(t, order.StateNew, zero.State)
}

func TestCancelRestingAndParked(t *testing.T) {
	f := newFixture(t)
	b := f.buy(100, 10)
	f.book.SetMarketPrice(100)
	s := f.stop(false, 90, 95, 10)
	f.add(s, ob.NoConditions)
	require.Equal(t, 1, f.book.StopAsks().Len())

	f.rec.reset()
	f.book.Cancel(b)
	f.book.Cancel(s)
	f.book.Cancel(s)
	assert.Equal(t, []string{
		"cancel #1 10",
		"cancel #2 10",
		"cancel-reject #2 " + ob.ReasonNotFound,
	}, f.rec.events)
	assert.Equal(t, 0, f.book.StopAsks().Len())
	assert.Equal(t, order.StateCancelled, s.State)
	f.requireDepth(nil, nil)
}

func TestImmediateOrCancel(t *testing.T) {
	f := newFixture(t)
	f.sell(100, 60)

	b := f.order(true, 100, 100)
	require.True(t, f.add(b, ob.ImmediateOrCancel))
	assert.Equal(t, ob.Quantity(60), b.FilledQty)
	assert.Equal(t, order.StateCancelled, b.State)
	assert.Contains(t, f.rec.events, "cancel #2 40")
	assert.Equal(t, 0, f.book.Bids().Len())
	f.requireDepth(nil, nil)
}

func TestFillOrKill(t *testing.T) {
	f := newFixture(t)
	a := f.sell(100, 60)

	b := f.order(true, 100, 100)
	assert.False(t, f.add(b, ob.FillOrKill))
	assert.Equal(t, ob.Quantity(0), b.FilledQty)
	assert.Equal(t, order.StateCancelled, b.State)
	assert.Equal(t, ob.Quantity(60), a.OpenQuantity())
	f.requireDepth(nil, []lvl{{100, 1, 60}})

	f.sell(100, 40)
	b2 := f.order(true, 100, 100)
	assert.True(t, f.add(b2, ob.FillOrKill))
	assert.Equal(t, order.StateComplete, b2.State)
	f.requireDepth(nil, nil)
}

func TestMarketOrdersUseMarketPrice(t *testing.T) {
	f := newFixture(t)
	b := f.order(true, ob.MarketOrderPrice, 100)
	f.add(b, ob.NoConditions)
	a := f.order(false, ob.MarketOrderPrice, 100)
	assert.False(t, f.add(a, ob.NoConditions), "no market price yet")
	f.requireResting(f.book.Asks(), a)

	f.book.Cancel(a)
	f.book.SetMarketPrice(42)
	a2 := f.order(false, ob.MarketOrderPrice, 100)
	require.True(t, f.add(a2, ob.NoConditions))
	assert.Equal(t, ob.Cost(4200), b.FilledCost)
	f.requireDepth(nil, nil)
}

func TestStopMarketAtMarketSubmitsImmediately(t *testing.T) {
	f := newFixture(t)
	f.book.SetMarketPrice(55)

	s := f.stop(true, ob.MarketOrderPrice, 55, 100)
	f.add(s, ob.NoConditions)
	assert.Equal(t, 0, f.book.StopBids().Len())
	f.requireResting(f.book.Bids(), s)

	a := f.order(false, ob.MarketOrderPrice, 100)
	require.True(t, f.add(a, ob.NoConditions))
	assert.Equal(t, ob.Cost(5500), s.FilledCost)
	assert.Equal(t, ob.Price(55), f.book.MarketPrice())
}

func TestStopsTriggeredByAonTrades(t *testing.T) {
	f := newFixture(t)
	f.book.SetMarketPrice(55)
	bid := f.buy(53, 100)
	ask := f.sell(57, 100)

	sb := f.stop(true, ob.MarketOrderPrice, 56, 100)
	ss := f.stop(false, ob.MarketOrderPrice, 54, 100)
	f.add(sb, ob.NoConditions)
	f.add(ss, ob.NoConditions)
	require.Equal(t, 1, f.book.StopBids().Len())
	require.Equal(t, 1, f.book.StopAsks().Len())

	ab := f.order(true, 56, 1000)
	as := f.order(false, 56, 1000)
	f.add(ab, ob.AllOrNone)
	require.True(t, f.add(as, ob.AllOrNone))
	assert.Equal(t, order.StateComplete, ab.State)
	assert.Equal(t, order.StateComplete, sb.State)
	assert.Equal(t, order.StateComplete, ask.State)
	assert.Equal(t, ob.Cost(5700), sb.FilledCost)
	assert.Equal(t, 0, f.book.StopBids().Len())
	assert.Equal(t, 1, f.book.StopAsks().Len())
	assert.Equal(t, ob.Price(57), f.book.MarketPrice())

	ab2 := f.order(true, 54, 1000)
	as2 := f.order(false, 54, 1000)
	f.add(ab2, ob.AllOrNone)
	require.True(t, f.add(as2, ob.AllOrNone))
	assert.Equal(t, order.StateComplete, ss.State)
	assert.Equal(t, order.StateComplete, bid.State)
	assert.Equal(t, ob.Cost(5300), ss.FilledCost)
	assert.Equal(t, ob.Price(53), f.book.MarketPrice())
	f.requireDepth(nil, nil)
}

func TestSetMarketPriceTriggersStops(t *testing.T) {
	f := newFixture(t)
	f.book.SetMarketPrice(100)
	s := f.stop(false, 90, 95, 10)
	f.add(s, ob.NoConditions)
	f.requireDepth(nil, nil)

	f.rec.reset()
	f.book.SetMarketPrice(96)
	assert.Empty(t, f.rec.events)
	assert.Equal(t, 0, f.rec.updates)

	f.book.SetMarketPrice(95)
	assert.Equal(t, []string{"trigger #1 0"}, f.rec.events)
	assert.Equal(t, 1, f.rec.updates)
	f.requireResting(f.book.Asks(), s)
	f.requireDepth(nil, []lvl{{90, 1, 10}})
}

func TestRegularBidFillsAons(t *testing.T) {
	f := newFixture(t)
	a0 := f.order(false, 1251, 100)
	a1 := f.order(false, 1251, 100)
	a2 := f.order(false, 1251, 700)
	f.add(a0, ob.AllOrNone)
	f.add(a1, ob.AllOrNone)
	f.add(a2, ob.NoConditions)

	b := f.buy(1251, 400)
	assert.Equal(t, order.StateComplete, b.State)
	assert.Equal(t, order.StateComplete, a0.State)
	assert.Equal(t, order.StateComplete, a1.State)
	assert.Equal(t, ob.Quantity(500), a2.OpenQuantity())
	f.requireDepth(nil, []lvl{{1251, 1, 500}})
}

func TestAonBidNoMatch(t *testing.T) {
	f := newFixture(t)
	f.sell(1251, 100)
	f.sell(1252, 100)

	b := f.order(true, 1252, 300)
	assert.False(t, f.add(b, ob.AllOrNone))
	f.requireResting(f.book.Bids(), b)
	f.requireDepth([]lvl{{1252, 1, 300}}, []lvl{{1251, 1, 100}, {1252, 1, 100}})
}

func TestAonBidPoolsRegularAsks(t *testing.T) {
	f := newFixture(t)
	a0 := f.sell(1251, 100)
	a1 := f.sell(1252, 100)
	a2 := f.sell(1252, 300)

	b := f.order(true, 1252, 300)
	require.True(t, f.add(b, ob.AllOrNone))
	assert.Equal(t, order.StateComplete, b.State)
	assert.Equal(t, order.StateComplete, a0.State)
	assert.Equal(t, order.StateComplete, a1.State)
	assert.Equal(t, ob.Quantity(200), a2.OpenQuantity())
	f.requireDepth(nil, []lvl{{1252, 1, 200}})
}

func TestAbandonedAonAttemptLeavesNoReservation(t *testing.T) {
	f := newFixture(t)
	a0 := f.order(false, 100, 200)
	a1 := f.order(false, 100, 150)
	f.add(a0, ob.AllOrNone)
	f.add(a1, ob.AllOrNone)

	b := f.order(true, 100, 300)
	assert.False(t, f.add(b, ob.AllOrNone))
	f.book.Asks().Each(func(_ ob.ComparablePrice, tr *ob.OrderTracker) bool {
		assert.Equal(t, ob.Quantity(0), tr.Reserved())
		assert.Equal(t, tr.Order().Quantity(), tr.OpenQuantity())
		return true
	})

	// the resting AON bid is retried once the regular ask rests
	a2 := f.order(false, 100, 100)
	require.True(t, f.add(a2, ob.NoConditions))
	assert.Equal(t, order.StateComplete, b.State)
	assert.Equal(t, order.StateComplete, a0.State)
	assert.Equal(t, order.StateComplete, a2.State)
	assert.Equal(t, ob.Quantity(0), a1.FilledQty)
	f.requireResting(f.book.Asks(), a1)
	f.requireResting(f.book.Bids())
	f.requireDepth(nil, []lvl{{100, 1, 150}})
}

func TestReentrantCallsQueueBehindCurrentBatch(t *testing.T) {
	f := newFixture(t)
	victim := f.buy(90, 10)
	f.sell(100, 10)

	var seen []ob.CallbackType
	f.book.AddHandler(ob.HandlerFunc(func(book *ob.OrderBook, cb *ob.Callback) {
		seen = append(seen, cb.Type)
		if cb.Type == ob.CallbackFill {
			book.Cancel(victim)
		}
	}))

	f.buy(100, 10)
	assert.Equal(t, []ob.CallbackType{
		ob.CallbackAccept,
		ob.CallbackFill,
		ob.CallbackBookUpdate,
		ob.CallbackCancel,
		ob.CallbackBookUpdate,
	}, seen)
	assert.Equal(t, order.StateCancelled, victim.State)
	f.requireDepth(nil, nil)
}
