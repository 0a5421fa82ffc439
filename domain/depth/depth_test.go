package depth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/orderbook"
)

type lvl struct {
	price orderbook.Price
	count int
	qty   orderbook.Quantity
}

func levelsOf(ls []*Level) []lvl {
	out := make([]lvl, 0, len(ls))
	for _, l := range ls {
		out = append(out, lvl{l.Price(), l.OrderCount(), l.AggregateQty()})
	}
	return out
}

// changes tracks which published levels were stamped since the last reset.
type changes struct {
	d    *Depth
	mark uint64
}

func watch(d *Depth) *changes {
	return &changes{d: d, mark: d.LastChange()}
}

func (c *changes) check(t *testing.T, buy bool, want ...bool) {
	t.Helper()
	ls := c.d.Asks()
	if buy {
		ls = c.d.Bids()
	}
	got := make([]bool, 0, len(ls))
	for _, l := range ls {
		got = append(got, l.ChangedSince(c.mark))
	}
	assert.Equal(t, want, got)
	c.mark = c.d.LastChange()
}

func TestAddBids(t *testing.T) {
	d := New(DefaultSize)
	cc := watch(d)
	d.AddOrder(1234, 100, true)
	d.AddOrder(1234, 200, true)
	d.AddOrder(1234, 300, true)
	cc.check(t, true, true)
	assert.Equal(t, []lvl{{1234, 3, 600}}, levelsOf(d.Bids()))
	assert.Empty(t, d.Asks())
}

func TestInsertBidLevels(t *testing.T) {
	d := New(DefaultSize)
	cc := watch(d)

	d.AddOrder(1234, 800, true)
	cc.check(t, true, true)
	d.AddOrder(1232, 100, true)
	cc.check(t, true, false, true)
	d.AddOrder(1236, 300, true)
	cc.check(t, true, true, true, true)
	d.AddOrder(1235, 200, true)
	cc.check(t, true, false, true, true, true)
	d.AddOrder(1234, 900, true)
	cc.check(t, true, false, false, true, false)
	d.AddOrder(1231, 700, true)
	cc.check(t, true, false, false, false, false, true)
	d.AddOrder(1235, 400, true)
	cc.check(t, true, false, true, false, false, false)
	d.AddOrder(1231, 500, true)
	cc.check(t, true, false, false, false, false, true)
	d.AddOrder(1233, 200, true)
	cc.check(t, true, false, false, false, true, true)

	assert.Equal(t, []lvl{
		{1236, 1, 300},
		{1235, 2, 600},
		{1234, 2, 1700},
		{1233, 1, 200},
		{1232, 1, 100},
	}, levelsOf(d.Bids()))
	assert.Equal(t, []lvl{{1231, 2, 1200}}, levelsOf(d.Excess(true)))
}

func TestInsertBidLevelsTruncate(t *testing.T) {
	d := New(DefaultSize)
	cc := watch(d)

	for _, o := range []lvl{{1234, 0, 800}, {1232, 0, 100}, {1236, 0, 300}, {1231, 0, 700}, {1234, 0, 900}} {
		d.AddOrder(o.price, o.qty, true)
	}
	cc.check(t, true, true, true, true, true)
	require.Len(t, d.Bids(), 4)

	d.AddOrder(1235, 400, true)
	cc.check(t, true, false, true, true, true, true)
	d.AddOrder(1235, 200, true)
	cc.check(t, true, false, true, false, false, false)
	d.AddOrder(1231, 500, true)
	cc.check(t, true, false, false, false, false, true)

	// beyond the published levels nothing visible changes
	before := d.LastChange()
	d.AddOrder(1230, 200, true)
	cc.check(t, true, false, false, false, false, false)
	assert.Equal(t, before, d.LastChange())

	d.AddOrder(1238, 200, true)
	cc.check(t, true, true, true, true, true, true)
	d.AddOrder(1238, 250, true)
	cc.check(t, true, true, false, false, false, false)
	d.AddOrder(1237, 500, true)
	cc.check(t, true, false, true, true, true, true)

	assert.Equal(t, []lvl{
		{1238, 2, 450},
		{1237, 1, 500},
		{1236, 1, 300},
		{1235, 2, 600},
		{1234, 2, 1700},
	}, levelsOf(d.Bids()))
	assert.Equal(t, []lvl{{1232, 1, 100}, {1231, 2, 1200}, {1230, 1, 200}}, levelsOf(d.Excess(true)))
	for _, l := range d.Excess(true) {
		assert.True(t, l.IsExcess())
	}
}

func TestCloseEraseBid(t *testing.T) {
	d := New(DefaultSize)
	d.AddOrder(1235, 300, true)
	d.AddOrder(1235, 400, true)
	d.AddOrder(1234, 500, true)
	d.AddOrder(1233, 200, true)
	cc := watch(d)

	assert.False(t, d.CloseOrder(1235, 300, true))
	cc.check(t, true, true, false, false)
	assert.True(t, d.CloseOrder(1235, 400, true))
	cc.check(t, true, true, true)
	assert.Equal(t, []lvl{{1234, 1, 500}, {1233, 1, 200}}, levelsOf(d.Bids()))

	assert.False(t, d.CloseOrder(1200, 10, true), "unknown level")
}

func TestCloseBidsFreeLevels(t *testing.T) {
	d := New(DefaultSize)
	for _, o := range []lvl{
		{1234, 0, 800}, {1232, 0, 100}, {1236, 0, 300}, {1235, 0, 200},
		{1234, 0, 900}, {1231, 0, 700}, {1235, 0, 400}, {1231, 0, 500},
	} {
		d.AddOrder(o.price, o.qty, true)
	}
	cc := watch(d)

	d.CloseOrder(1234, 900, true)
	cc.check(t, true, false, false, true, false, false)
	d.CloseOrder(1232, 100, true)
	cc.check(t, true, false, false, false, true)
	d.CloseOrder(1236, 300, true)
	cc.check(t, true, true, true, true)
	assert.Equal(t, []lvl{{1235, 2, 600}, {1234, 1, 800}, {1231, 2, 1200}}, levelsOf(d.Bids()))

	d.AddOrder(1233, 350, true)
	cc.check(t, true, false, false, true, true)
	d.AddOrder(1236, 300, true)
	cc.check(t, true, true, true, true, true, true)
	d.AddOrder(1231, 700, true)
	cc.check(t, true, false, false, false, false, true)

	assert.Equal(t, []lvl{
		{1236, 1, 300},
		{1235, 2, 600},
		{1234, 1, 800},
		{1233, 1, 350},
		{1231, 3, 1900},
	}, levelsOf(d.Bids()))
}

func TestErasePromotesBestExcessLevel(t *testing.T) {
	d := New(2)
	d.AddOrder(100, 10, false)
	d.AddOrder(101, 10, false)
	d.AddOrder(103, 10, false)
	d.AddOrder(102, 10, false)
	require.Equal(t, []lvl{{100, 1, 10}, {101, 1, 10}}, levelsOf(d.Asks()))
	require.Equal(t, []lvl{{102, 1, 10}, {103, 1, 10}}, levelsOf(d.Excess(false)))

	// excess mutations are invisible
	before := d.LastChange()
	d.AddOrder(103, 5, false)
	d.ChangeOrderQuantity(102, 7, false)
	assert.Equal(t, before, d.LastChange())

	cc := watch(d)
	assert.True(t, d.CloseOrder(100, 10, false))
	cc.check(t, false, true, true)
	asks := d.Asks()
	assert.Equal(t, []lvl{{101, 1, 10}, {102, 1, 17}}, levelsOf(asks))
	assert.False(t, asks[1].IsExcess())
	assert.Equal(t, []lvl{{103, 2, 15}}, levelsOf(d.Excess(false)))

	assert.False(t, d.CloseOrder(103, 10, false))
	assert.True(t, d.CloseOrder(103, 5, false))
	assert.Empty(t, d.Excess(false))
}

func TestChangeQuantity(t *testing.T) {
	d := New(DefaultSize)
	d.AddOrder(1236, 300, true)
	d.AddOrder(1235, 200, true)
	d.AddOrder(1232, 100, true)
	d.AddOrder(1235, 400, true)
	cc := watch(d)

	d.ChangeOrderQuantity(1236, 37, true)
	cc.check(t, true, true, false, false)
	d.ChangeOrderQuantity(1235, -41, true)
	cc.check(t, true, false, true, false)
	d.ChangeOrderQuantity(1232, 60, true)
	cc.check(t, true, false, false, true)
	d.ChangeOrderQuantity(1236, -41, true)
	d.ChangeOrderQuantity(1236, 210, true)
	cc.check(t, true, true, false, false)
	d.ChangeOrderQuantity(1236, 0, true)
	cc.check(t, true, false, false, false)

	assert.Equal(t, []lvl{{1236, 1, 506}, {1235, 2, 559}, {1232, 1, 160}}, levelsOf(d.Bids()))
}

func TestReplaceAcrossLevels(t *testing.T) {
	d := New(DefaultSize)
	d.AddOrder(1236, 300, false)
	d.AddOrder(1235, 200, false)
	d.AddOrder(1232, 100, false)
	d.AddOrder(1235, 400, false)
	require.Equal(t, []lvl{{1232, 1, 100}, {1235, 2, 600}, {1236, 1, 300}}, levelsOf(d.Asks()))
	cc := watch(d)

	assert.False(t, d.ReplaceOrder(1235, 1237, 200, 200, false))
	cc.check(t, false, false, true, false, true)
	assert.Equal(t, []lvl{{1232, 1, 100}, {1235, 1, 400}, {1236, 1, 300}, {1237, 1, 200}}, levelsOf(d.Asks()))

	assert.True(t, d.ReplaceOrder(1232, 1231, 100, 150, false))
	assert.Equal(t, []lvl{{1231, 1, 150}, {1235, 1, 400}, {1236, 1, 300}, {1237, 1, 200}}, levelsOf(d.Asks()))

	assert.False(t, d.ReplaceOrder(1231, 1231, 150, 120, false))
	assert.Equal(t, orderbook.Quantity(120), d.BestAsk().AggregateQty())
}

func TestIgnoredFills(t *testing.T) {
	d := New(DefaultSize)
	d.AddOrder(100, 50, true)
	d.IgnoreFillQuantity(30, true)

	d.FillOrder(100, 20, false, true)
	assert.Equal(t, orderbook.Quantity(10), d.IgnoredFillQuantity(true))
	d.FillOrder(100, 10, true, true)
	assert.Equal(t, orderbook.Quantity(0), d.IgnoredFillQuantity(true))
	assert.Equal(t, []lvl{{100, 1, 50}}, levelsOf(d.Bids()))

	d.FillOrder(100, 20, false, true)
	assert.Equal(t, []lvl{{100, 1, 30}}, levelsOf(d.Bids()))
	d.FillOrder(100, 30, true, true)
	assert.Empty(t, d.Bids())
}

func TestInvariantViolations(t *testing.T) {
	panicsWith := func(code string, fn func()) {
		t.Helper()
		defer func() {
			ie, ok := orderbook.AsInvariant(recover())
			require.True(t, ok)
			assert.Equal(t, code, ie.Code)
		}()
		fn()
	}

	d := New(DefaultSize)
	d.AddOrder(100, 50, true)
	d.AddOrder(100, 50, true)
	panicsWith(orderbook.CodeDepthOverclose, func() { d.CloseOrder(100, 200, true) })
	panicsWith(orderbook.CodeDepthOverclose, func() { d.ChangeOrderQuantity(100, -101, true) })

	d.IgnoreFillQuantity(10, false)
	panicsWith(orderbook.CodeDepthIgnorePending, func() { d.IgnoreFillQuantity(5, false) })
	panicsWith(orderbook.CodeDepthOverclose, func() { d.FillOrder(100, 11, false, false) })
}

func TestPublishTracksChanges(t *testing.T) {
	d := New(DefaultSize)
	assert.False(t, d.Changed())
	assert.False(t, d.BboChanged())

	d.AddOrder(100, 10, true)
	assert.True(t, d.Changed())
	assert.True(t, d.BboChanged())
	d.Published()
	assert.False(t, d.Changed())
	assert.False(t, d.BboChanged())
	d.Published()
	assert.Equal(t, d.LastChange(), d.LastPublishedChange())

	// second level changes depth but not the top of book
	d.AddOrder(99, 10, true)
	assert.True(t, d.Changed())
	assert.False(t, d.BboChanged())
	d.Published()

	assert.True(t, d.CloseOrder(100, 10, true))
	assert.True(t, d.BboChanged())
	d.Published()

	assert.True(t, d.CloseOrder(99, 10, true))
	assert.True(t, d.BboChanged(), "side emptied")
	d.Published()
	assert.False(t, d.BboChanged())
	assert.Nil(t, d.BestBid())
}
