package orderbook

// priceLevel is the FIFO queue of trackers sharing one priority key.
type priceLevel struct {
	key ComparablePrice

	head *OrderTracker
	tail *OrderTracker
}

func (p *priceLevel) enqueue(t *OrderTracker) {
	t.level = p
	if p.head == nil {
		p.head = t
		p.tail = t
	} else {
		p.tail.next = t
		t.prev = p.tail
		p.tail = t
	}
}

// remove unlinks t from the queue. t must belong to p.
func (p *priceLevel) remove(t *OrderTracker) {
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		p.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		p.tail = t.prev
	}
	t.next = nil
	t.prev = nil
	t.level = nil
}

func (p *priceLevel) empty() bool {
	return p.head == nil
}

// find returns the tracker holding order, or nil.
func (p *priceLevel) find(order Order) *OrderTracker {
	for t := p.head; t != nil; t = t.next {
		if t.order == order {
			return t
		}
	}
	return nil
}
