package orderbook

// TrackerMap is an ordered multimap from ComparablePrice to trackers:
// price priority across levels, insertion order within a level.
type TrackerMap struct {
	tree *rbTree[ComparablePrice, *priceLevel]
	size int
}

func newTrackerMap() *TrackerMap {
	return &TrackerMap{
		tree: newRBTree[ComparablePrice, *priceLevel](ComparablePrice.Compare),
	}
}

// Len is the number of trackers held.
func (m *TrackerMap) Len() int { return m.size }

// Levels is the number of distinct priority keys held.
func (m *TrackerMap) Levels() int { return m.tree.len() }

func (m *TrackerMap) insert(key ComparablePrice, t *OrderTracker) {
	lvl := m.tree.upsert(key, func() *priceLevel { return &priceLevel{key: key} })
	lvl.enqueue(t)
	m.size++
}

// erase removes t from the map. Trackers not in the map are ignored.
func (m *TrackerMap) erase(t *OrderTracker) {
	lvl := t.level
	if lvl == nil {
		return
	}
	lvl.remove(t)
	m.size--
	if lvl.empty() {
		m.tree.delete(lvl.key)
	}
}

func (m *TrackerMap) eraseAll(ts []*OrderTracker) {
	for _, t := range ts {
		m.erase(t)
	}
}

func (m *TrackerMap) find(key ComparablePrice, order Order) *OrderTracker {
	lvl, ok := m.tree.get(key)
	if !ok {
		return nil
	}
	return lvl.find(order)
}

// Each visits trackers in priority order until fn returns false. fn must not
// insert into or erase from m.
func (m *TrackerMap) Each(fn func(key ComparablePrice, t *OrderTracker) bool) {
	for n := m.tree.first(); n != nil; n = m.tree.successor(n) {
		for t := n.value.head; t != nil; {
			next := t.next
			if !fn(n.key, t) {
				return
			}
			t = next
		}
	}
}

// Front returns the highest priority tracker, or nil.
func (m *TrackerMap) Front() (ComparablePrice, *OrderTracker) {
	n := m.tree.first()
	if n == nil {
		return ComparablePrice{}, nil
	}
	return n.key, n.value.head
}
