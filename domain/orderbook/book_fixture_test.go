package orderbook_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/depth"
	"matchbook/domain/order"
	ob "matchbook/domain/orderbook"
)

type trade struct {
	qty  ob.Quantity
	cost ob.Cost
}

// recorder logs every listener call in delivery order.
type recorder struct {
	events  []string
	trades  []trade
	updates int
}

func name(o ob.Order) string {
	if so, ok := o.(*order.SimpleOrder); ok {
		return fmt.Sprintf("#%d", so.ID)
	}
	return "?"
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) OnAccept(o ob.Order, q ob.Quantity) { r.add("accept %s %d", name(o), q) }
func (r *recorder) OnReject(o ob.Order, reason string) { r.add("reject %s %s", name(o), reason) }
func (r *recorder) OnFill(o, m ob.Order, q ob.Quantity, c ob.Cost, _, _ bool) {
	r.add("fill %s %s %d %d", name(o), name(m), q, c)
}
func (r *recorder) OnCancel(o ob.Order, q ob.Quantity) { r.add("cancel %s %d", name(o), q) }
func (r *recorder) OnCancelReject(o ob.Order, reason string) {
	r.add("cancel-reject %s %s", name(o), reason)
}
func (r *recorder) OnReplace(o ob.Order, cur, next ob.Quantity, p ob.Price) {
	r.add("replace %s %d->%d @%d", name(o), cur, next, p)
}
func (r *recorder) OnReplaceReject(o ob.Order, reason string) {
	r.add("replace-reject %s %s", name(o), reason)
}
func (r *recorder) OnStopTrigger(o ob.Order, q ob.Quantity) { r.add("trigger %s %d", name(o), q) }
func (r *recorder) OnTrade(_ *ob.OrderBook, q ob.Quantity, c ob.Cost) {
	r.trades = append(r.trades, trade{q, c})
}
func (r *recorder) OnOrderBookChange(*ob.OrderBook) { r.updates++ }

func (r *recorder) reset() {
	r.events = nil
	r.trades = nil
	r.updates = 0
}

type fixture struct {
	t    *testing.T
	book *depth.Book
	rec  *recorder
	next uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b, _ := order.NewBook("TEST", depth.DefaultSize)
	rec := &recorder{}
	b.SetOrderListener(rec)
	b.SetTradeListener(rec)
	b.SetBookListener(rec)
	return &fixture{t: t, book: b, rec: rec}
}

func (f *fixture) order(buy bool, price ob.Price, qty ob.Quantity) *order.SimpleOrder {
	f.next++
	return order.New(f.next, buy, price, qty)
}

func (f *fixture) stop(buy bool, price, stop ob.Price, qty ob.Quantity) *order.SimpleOrder {
	f.next++
	return order.NewStop(f.next, buy, price, stop, qty)
}

func (f *fixture) add(o *order.SimpleOrder, c ob.OrderConditions) bool {
	return f.book.Add(o, c)
}

func (f *fixture) buy(price ob.Price, qty ob.Quantity) *order.SimpleOrder {
	o := f.order(true, price, qty)
	f.add(o, ob.NoConditions)
	return o
}

func (f *fixture) sell(price ob.Price, qty ob.Quantity) *order.SimpleOrder {
	o := f.order(false, price, qty)
	f.add(o, ob.NoConditions)
	return o
}

type lvl struct {
	price ob.Price
	count int
	qty   ob.Quantity
}

func levels(ls []*depth.Level) []lvl {
	out := make([]lvl, 0, len(ls))
	for _, l := range ls {
		out = append(out, lvl{l.Price(), l.OrderCount(), l.AggregateQty()})
	}
	return out
}

func (f *fixture) requireDepth(bids, asks []lvl) {
	f.t.Helper()
	if bids == nil {
		bids = []lvl{}
	}
	if asks == nil {
		asks = []lvl{}
	}
	d := f.book.Depth()
	require.Equal(f.t, bids, levels(d.Bids()), "bids")
	require.Equal(f.t, asks, levels(d.Asks()), "asks")
}

func (f *fixture) requireResting(m *ob.TrackerMap, want ...*order.SimpleOrder) {
	f.t.Helper()
	var got []ob.Order
	m.Each(func(_ ob.ComparablePrice, tr *ob.OrderTracker) bool {
		got = append(got, tr.Order())
		return true
	})
	wantOrders := make([]ob.Order, 0, len(want))
	for _, o := range want {
		wantOrders = append(wantOrders, o)
	}
	if got == nil {
		got = []ob.Order{}
	}
	assert.Equal(f.t, wantOrders, got)
}
