package depth

import (
	"github.com/google/btree"

	"matchbook/domain/orderbook"
)

// DefaultSize is the number of published levels per side.
const DefaultSize = 5

// side holds one side's published levels (best first) and the excess tail.
type side struct {
	buy       bool
	published []*Level
	excess    *btree.BTreeG[*Level]
}

func newSide(buy bool) *side {
	s := &side{buy: buy}
	s.excess = btree.NewG[*Level](16, func(a, b *Level) bool {
		return s.better(a.price, b.price)
	})
	return s
}

func (s *side) better(a, b orderbook.Price) bool {
	if s.buy {
		return a > b
	}
	return a < b
}

func (s *side) findPublished(price orderbook.Price) (int, *Level) {
	for i, l := range s.published {
		if l.price == price {
			return i, l
		}
	}
	return -1, nil
}

func (s *side) findExcess(price orderbook.Price) *Level {
	l, ok := s.excess.Get(&Level{price: price})
	if !ok {
		return nil
	}
	return l
}

// insertPos is the index of the first published level price beats.
func (s *side) insertPos(price orderbook.Price) int {
	for i, l := range s.published {
		if s.better(price, l.price) {
			return i
		}
	}
	return len(s.published)
}

// Depth aggregates resting quantity per price: the best size levels of each
// side are published, the rest are kept as excess so they can be promoted.
//
// lastChange advances once per mutation touching a published level and
// stamps the levels it touched; Published records the watermark consumers
// have seen.
type Depth struct {
	size int
	bids *side
	asks *side

	lastChange          uint64
	lastPublishedChange uint64
	// top of book emptiness at the last publish
	publishedBid bool
	publishedAsk bool

	ignoreBidFill orderbook.Quantity
	ignoreAskFill orderbook.Quantity
}

// New returns an empty Depth publishing size levels per side. A size below
// one selects DefaultSize.
func New(size int) *Depth {
	if size < 1 {
		size = DefaultSize
	}
	return &Depth{
		size: size,
		bids: newSide(true),
		asks: newSide(false),
	}
}

func (d *Depth) side(buy bool) *side {
	if buy {
		return d.bids
	}
	return d.asks
}

func (d *Depth) Size() int                   { return d.size }
func (d *Depth) LastChange() uint64          { return d.lastChange }
func (d *Depth) LastPublishedChange() uint64 { return d.lastPublishedChange }

// Changed reports whether a published level changed since Published.
func (d *Depth) Changed() bool {
	return d.lastChange > d.lastPublishedChange
}

// Published marks the current state as seen by consumers.
func (d *Depth) Published() {
	d.lastPublishedChange = d.lastChange
	d.publishedBid = len(d.bids.published) > 0
	d.publishedAsk = len(d.asks.published) > 0
}

// Bids returns the published bid levels, best first. Callers must not
// modify them.
func (d *Depth) Bids() []*Level { return append([]*Level(nil), d.bids.published...) }

// Asks returns the published ask levels, best first.
func (d *Depth) Asks() []*Level { return append([]*Level(nil), d.asks.published...) }

// Excess returns one side's excess levels, best first.
func (d *Depth) Excess(buy bool) []*Level {
	var out []*Level
	d.side(buy).excess.Ascend(func(l *Level) bool {
		out = append(out, l)
		return true
	})
	return out
}

// BestBid returns the top bid level, or nil.
func (d *Depth) BestBid() *Level { return d.side(true).top() }

// BestAsk returns the top ask level, or nil.
func (d *Depth) BestAsk() *Level { return d.side(false).top() }

func (s *side) top() *Level {
	if len(s.published) == 0 {
		return nil
	}
	return s.published[0]
}

// BboChanged reports whether the top level of either side changed, appeared
// or vanished since Published.
func (d *Depth) BboChanged() bool {
	return d.topChanged(d.bids, d.publishedBid) || d.topChanged(d.asks, d.publishedAsk)
}

func (d *Depth) topChanged(s *side, had bool) bool {
	top := s.top()
	if top == nil {
		return had
	}
	return !had || top.ChangedSince(d.lastPublishedChange)
}

// AddOrder adds one order of qty at price.
func (d *Depth) AddOrder(price orderbook.Price, qty orderbook.Quantity, buy bool) {
	s := d.side(buy)
	if _, l := s.findPublished(price); l != nil {
		l.addOrder(qty)
		d.lastChange++
		l.lastChange = d.lastChange
		return
	}
	if l := s.findExcess(price); l != nil {
		l.addOrder(qty)
		l.lastChange = d.lastChange
		return
	}

	pos := s.insertPos(price)
	if pos >= d.size {
		l := &Level{price: price, excess: true, lastChange: d.lastChange}
		l.addOrder(qty)
		s.excess.ReplaceOrInsert(l)
		return
	}

	d.lastChange++
	l := &Level{price: price}
	l.addOrder(qty)
	s.published = append(s.published, nil)
	copy(s.published[pos+1:], s.published[pos:])
	s.published[pos] = l
	for _, moved := range s.published[pos:] {
		moved.lastChange = d.lastChange
	}
	if len(s.published) > d.size {
		last := len(s.published) - 1
		evicted := s.published[last]
		s.published = s.published[:last]
		evicted.excess = true
		s.excess.ReplaceOrInsert(evicted)
	}
}

// CloseOrder removes one order holding qty at price and reports whether its
// level was erased.
func (d *Depth) CloseOrder(price orderbook.Price, qty orderbook.Quantity, buy bool) bool {
	s := d.side(buy)
	if i, l := s.findPublished(price); l != nil {
		if l.closeOrder(qty) {
			d.erasePublished(s, i)
			return true
		}
		d.lastChange++
		l.lastChange = d.lastChange
		return false
	}
	if l := s.findExcess(price); l != nil {
		if l.closeOrder(qty) {
			s.excess.Delete(l)
			return true
		}
		l.lastChange = d.lastChange
	}
	return false
}

// erasePublished drops published level i and promotes the best excess
// level into the freed slot.
func (d *Depth) erasePublished(s *side, i int) {
	d.lastChange++
	s.published = append(s.published[:i], s.published[i+1:]...)
	for _, moved := range s.published[i:] {
		moved.lastChange = d.lastChange
	}
	if promoted, ok := s.excess.DeleteMin(); ok {
		promoted.excess = false
		promoted.lastChange = d.lastChange
		s.published = append(s.published, promoted)
	}
}

// ChangeOrderQuantity adjusts the aggregate quantity at price by delta.
func (d *Depth) ChangeOrderQuantity(price orderbook.Price, delta orderbook.Quantity, buy bool) {
	if delta == 0 {
		return
	}
	s := d.side(buy)
	if _, l := s.findPublished(price); l != nil {
		l.changeQty(delta)
		d.lastChange++
		l.lastChange = d.lastChange
		return
	}
	if l := s.findExcess(price); l != nil {
		l.changeQty(delta)
		l.lastChange = d.lastChange
	}
}

// ReplaceOrder moves one order from oldPrice holding oldQty to newPrice
// holding newQty, and reports whether the old level was erased.
func (d *Depth) ReplaceOrder(oldPrice, newPrice orderbook.Price, oldQty, newQty orderbook.Quantity, buy bool) bool {
	if oldPrice == newPrice {
		d.ChangeOrderQuantity(oldPrice, newQty-oldQty, buy)
		return false
	}
	d.AddOrder(newPrice, newQty, buy)
	return d.CloseOrder(oldPrice, oldQty, buy)
}

// FillOrder applies a fill of fillQty to an order resting at price. While
// an ignore quantity is pending for the side the fill only consumes it.
func (d *Depth) FillOrder(price orderbook.Price, fillQty orderbook.Quantity, filled, buy bool) {
	ignore := &d.ignoreAskFill
	if buy {
		ignore = &d.ignoreBidFill
	}
	switch {
	case *ignore != 0:
		if fillQty > *ignore {
			orderbook.Invariant(orderbook.CodeDepthOverclose, "fill %d exceeds ignored %d", fillQty, *ignore)
		}
		*ignore -= fillQty
	case filled:
		d.CloseOrder(price, fillQty, buy)
	default:
		d.ChangeOrderQuantity(price, -fillQty, buy)
	}
}

// IgnoreFillQuantity makes the next qty of fills on one side leave depth
// untouched. Used for orders accepted already filled, which never entered
// depth.
func (d *Depth) IgnoreFillQuantity(qty orderbook.Quantity, buy bool) {
	ignore := &d.ignoreAskFill
	if buy {
		ignore = &d.ignoreBidFill
	}
	if *ignore != 0 {
		orderbook.Invariant(orderbook.CodeDepthIgnorePending, "ignore %d with %d pending", qty, *ignore)
	}
	*ignore = qty
}

// IgnoredFillQuantity is the fill quantity still to be ignored on one side.
func (d *Depth) IgnoredFillQuantity(buy bool) orderbook.Quantity {
	if buy {
		return d.ignoreBidFill
	}
	return d.ignoreAskFill
}
