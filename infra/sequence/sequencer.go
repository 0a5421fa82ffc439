package sequence

import "sync/atomic"

// Sequencer issues strictly increasing identifiers: order ids, fill ids and
// journal sequence numbers each draw from their own instance.
type Sequencer struct {
	last atomic.Uint64
}

// New returns a sequencer whose first Next is start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next issues the next identifier.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last identifier issued.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Advance moves the sequencer forward to at least v. Identifiers seen while
// replaying a journal are fed through here so new ones never collide.
func (s *Sequencer) Advance(v uint64) {
	for {
		cur := s.last.Load()
		if v <= cur || s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}
