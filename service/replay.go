package service

import (
	"context"
	"fmt"
	"log/slog"

	"matchbook/domain/event"
	"matchbook/domain/orderbook"
	"matchbook/infra/journal"
)

// Summary describes a replayed session.
type Summary struct {
	Records     int
	Orders      int
	Trades      int
	Volume      orderbook.Quantity
	Notional    orderbook.Cost
	LastSeq     uint64
	LastOrderID uint64
	MarketPrice orderbook.Price
	Bids        []event.Level
	Asks        []event.Level
}

// Replay runs the journal in dir through a fresh book and summarises the
// session. It is a simulation: nothing is journaled or published.
func Replay(dir, symbol string, depthSize int) (Summary, error) {
	var sum Summary
	s := New(Options{
		Symbol:    symbol,
		DepthSize: depthSize,
		Logger:    slog.New(slog.DiscardHandler),
		Sinks: []Sink{SinkFunc(func(e event.Event) error {
			if e.Kind == event.KindFill {
				sum.Trades++
				sum.Volume += e.Quantity
				sum.Notional += e.Cost
			}
			return nil
		})},
	})

	last, err := journal.Replay(dir, func(rec *journal.Record) error {
		sum.Records++
		cmd, err := rec.Command()
		if err != nil {
			return fmt.Errorf("record %d: %w", rec.Seq, err)
		}
		if rec.Type == journal.RecordPlace {
			sum.Orders++
			sum.LastOrderID = max(sum.LastOrderID, cmd.OrderID)
		}
		return s.execute(rec.Type, cmd)
	})
	sum.LastSeq = last
	if err != nil {
		return sum, err
	}

	d := s.Depth()
	sum.Bids, sum.Asks = d.Bids, d.Asks
	sum.MarketPrice = s.book.MarketPrice()
	return sum, nil
}

// execute applies a journaled command without journaling it again.
// Commands naming orders that are no longer live are skipped, as they were
// refused when first issued.
func (s *OrderService) execute(t journal.RecordType, cmd journal.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return s.fault
	}

	switch t {
	case journal.RecordPlace:
		s.orderIDs.Advance(cmd.OrderID)
		return s.apply("place", func() {
			o := s.place(cmd)
			s.book.Add(o, cmd.Conditions)
		})
	case journal.RecordCancel:
		if o, ok := s.orders[cmd.OrderID]; ok {
			return s.apply("cancel", func() { s.book.Cancel(o) })
		}
	case journal.RecordReplace:
		if o, ok := s.orders[cmd.OrderID]; ok {
			return s.apply("replace", func() { s.book.Replace(o, cmd.SizeDelta, cmd.Price) })
		}
	case journal.RecordMarketPrice:
		return s.apply("market_price", func() { s.book.SetMarketPrice(cmd.Price) })
	default:
		return fmt.Errorf("%w: record type %s", journal.ErrCorrupt, t)
	}
	return nil
}

// ResumeFrom advances the sequences past every record the journal in dir
// has held: the checkpoint left by truncation, then the segments still on
// disk.
func (s *OrderService) ResumeFrom(ctx context.Context, dir string) (uint64, error) {
	cp, err := journal.ReadCheckpoint(dir)
	if err != nil {
		return 0, fmt.Errorf("journal checkpoint: %w", err)
	}
	lastOrder := cp.OrderID
	last, err := journal.Replay(dir, func(rec *journal.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec.Type != journal.RecordPlace {
			return nil
		}
		cmd, err := rec.Command()
		if err != nil {
			return err
		}
		lastOrder = max(lastOrder, cmd.OrderID)
		return nil
	})
	if err != nil {
		return last, fmt.Errorf("journal scan: %w", err)
	}
	last = max(last, cp.Seq)
	s.Resume(last, lastOrder, 0)
	return last, nil
}
