package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"matchbook/domain/depth"
	"matchbook/domain/event"
	"matchbook/domain/order"
	"matchbook/domain/orderbook"
	"matchbook/infra/journal"
	"matchbook/infra/sequence"
	"matchbook/snapshot"
)

// Observer is told how long each command held the book and when the book
// is poisoned. *metrics.Metrics implements it.
type Observer interface {
	ObserveCommand(command string, d time.Duration)
	EngineFault()
}

type Options struct {
	Symbol    string
	DepthSize int
	// Journal is optional; without it commands are not recorded.
	Journal  *journal.Journal
	Sinks    []Sink
	Observer Observer
	Logger   *slog.Logger
}

type PlaceRequest struct {
	Buy        bool
	Price      orderbook.Price
	StopPrice  orderbook.Price
	Quantity   orderbook.Quantity
	Conditions orderbook.OrderConditions
}

type PlaceResult struct {
	OrderID uint64
	Matched bool
	State   order.State
	Filled  orderbook.Quantity
}

// OrderService owns the book. All writes go through its mutex, so the book
// sees one command at a time.
type OrderService struct {
	mu sync.Mutex

	book      *depth.Book
	lifecycle *order.Lifecycle
	orders    map[uint64]*order.SimpleOrder

	journal  *journal.Journal
	sinks    []Sink
	observer Observer
	log      *slog.Logger

	journalSeq *sequence.Sequencer
	orderIDs   *sequence.Sequencer
	eventSeq   *sequence.Sequencer

	// events produced by the command in flight
	pending []event.Event
	fault   error
}

func New(opts Options) *OrderService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	book, lifecycle := order.NewBook(opts.Symbol, opts.DepthSize)
	s := &OrderService{
		book:       book,
		lifecycle:  lifecycle,
		orders:     make(map[uint64]*order.SimpleOrder),
		journal:    opts.Journal,
		sinks:      opts.Sinks,
		observer:   opts.Observer,
		log:        opts.Logger,
		journalSeq: sequence.New(0),
		orderIDs:   sequence.New(0),
		eventSeq:   sequence.New(0),
	}
	book.AddHandler(orderbook.HandlerFunc(s.onCallback))
	book.SetDepthListener(s)
	book.SetBboListener(s)
	return s
}

// Resume moves the journal, order id and event sequences past values
// already used by earlier runs, so new records and outbox keys never
// collide with old ones.
func (s *OrderService) Resume(journalSeq, orderID, eventSeq uint64) {
	s.journalSeq.Advance(journalSeq)
	s.orderIDs.Advance(orderID)
	s.eventSeq.Advance(eventSeq)
}

func (s *OrderService) Symbol() string { return s.book.Symbol() }

// Place validates, journals and submits a new order.
func (s *OrderService) Place(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	if err := ctx.Err(); err != nil {
		return PlaceResult{}, err
	}
	if err := validate(req); err != nil {
		return PlaceResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return PlaceResult{}, s.fault
	}

	cmd := journal.Command{
		OrderID:    s.orderIDs.Next(),
		Buy:        req.Buy,
		Price:      req.Price,
		StopPrice:  req.StopPrice,
		Quantity:   req.Quantity,
		Conditions: req.Conditions,
	}
	if err := s.record(journal.RecordPlace, cmd); err != nil {
		return PlaceResult{}, err
	}

	var o *order.SimpleOrder
	var matched bool
	err := s.apply("place", func() {
		o = s.place(cmd)
		matched = s.book.Add(o, cmd.Conditions)
	})
	if err != nil {
		return PlaceResult{}, err
	}

	s.log.Debug("order placed",
		"order_id", o.ID, "buy", o.Buy, "price", o.LimitPrice, "qty", o.Qty, "state", o.State)
	return PlaceResult{OrderID: o.ID, Matched: matched, State: o.State, Filled: o.FilledQty}, nil
}

// Cancel withdraws a resting or parked order.
func (s *OrderService) Cancel(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return s.fault
	}
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}

	if err := s.record(journal.RecordCancel, journal.Command{OrderID: id}); err != nil {
		return err
	}
	return s.apply("cancel", func() { s.book.Cancel(o) })
}

// Replace resizes a resting order by sizeDelta and moves it to newPrice;
// orderbook.PriceUnchanged keeps the price. It reports whether the order
// traded.
func (s *OrderService) Replace(ctx context.Context, id uint64, sizeDelta orderbook.Quantity, newPrice orderbook.Price) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if newPrice < 0 {
		return false, fmt.Errorf("%w: negative price %d", ErrInvalidOrder, newPrice)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return false, s.fault
	}
	o, ok := s.orders[id]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}

	if err := s.record(journal.RecordReplace, journal.Command{OrderID: id, SizeDelta: sizeDelta, Price: newPrice}); err != nil {
		return false, err
	}
	var matched bool
	err := s.apply("replace", func() { matched = s.book.Replace(o, sizeDelta, newPrice) })
	return matched, err
}

// SetMarketPrice seeds the market price from a reference feed.
func (s *OrderService) SetMarketPrice(ctx context.Context, price orderbook.Price) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if price <= 0 {
		return fmt.Errorf("%w: market price %d", ErrInvalidOrder, price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return s.fault
	}
	if err := s.record(journal.RecordMarketPrice, journal.Command{Price: price}); err != nil {
		return err
	}
	return s.apply("market_price", func() { s.book.SetMarketPrice(price) })
}

// Order returns a copy of a live order.
func (s *OrderService) Order(id uint64) (order.SimpleOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.SimpleOrder{}, false
	}
	return *o, true
}

// Snapshot captures the book as of the last journaled command.
func (s *OrderService) Snapshot() *snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.Capture(s.book, s.journalSeq.Current(), orderID)
}

// Depth returns the current published depth.
func (s *OrderService) Depth() event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return event.FromDepth(s.book.Symbol(), event.KindDepth, s.book.Depth())
}

func validate(req PlaceRequest) error {
	switch {
	case req.Price < 0:
		return fmt.Errorf("%w: negative price %d", ErrInvalidOrder, req.Price)
	case req.StopPrice < 0:
		return fmt.Errorf("%w: negative stop price %d", ErrInvalidOrder, req.StopPrice)
	case req.Conditions&^orderbook.FillOrKill != 0:
		return fmt.Errorf("%w: unknown conditions %d", ErrInvalidOrder, req.Conditions)
	}
	return nil
}

func (s *OrderService) record(t journal.RecordType, cmd journal.Command) error {
	if s.journal == nil {
		return nil
	}
	rec := journal.NewRecord(t, s.journalSeq.Next(), cmd)
	if err := s.journal.Append(rec); err != nil {
		return fmt.Errorf("journal %s: %w", t, err)
	}
	return nil
}

// place registers the order a Place command creates.
func (s *OrderService) place(cmd journal.Command) *order.SimpleOrder {
	o := order.NewStop(cmd.OrderID, cmd.Buy, cmd.Price, cmd.StopPrice, cmd.Quantity)
	o.Conditions = cmd.Conditions
	s.orders[o.ID] = o
	return o
}

// apply runs fn against the book, then delivers the events it produced. An
// invariant panic poisons the service.
func (s *OrderService) apply(command string, fn func()) (err error) {
	start := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveCommand(command, time.Since(start))
		}
	}()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		inv, ok := orderbook.AsInvariant(r)
		if !ok {
			panic(r)
		}
		s.pending = nil
		s.fault = fmt.Errorf("%w: %s", ErrEngineFault, inv)
		s.log.Error("book invariant violated", "command", command, "code", inv.Code, "err", inv.Detail)
		if s.observer != nil {
			s.observer.EngineFault()
		}
		err = s.fault
	}()

	fn()
	s.deliver()
	return nil
}

// deliver stamps and hands the pending events to every sink. Sink failures
// are logged; the book has already changed.
func (s *OrderService) deliver() {
	now := time.Now().UnixMilli()
	for _, e := range s.pending {
		e.Seq = s.eventSeq.Next()
		e.Time = now
		for _, sink := range s.sinks {
			if err := sink.Consume(e); err != nil {
				s.log.Error("event delivery failed", "seq", e.Seq, "kind", e.Kind, "err", err)
			}
		}
	}
	s.pending = s.pending[:0]
}

// retire forgets o once it can no longer be cancelled or replaced. The
// lifecycle handler runs first, so o's state already reflects the callback.
func (s *OrderService) retire(o orderbook.Order) {
	if o == nil {
		return
	}
	if so := o.(*order.SimpleOrder); so.State != order.StateAccepted {
		delete(s.orders, so.ID)
	}
}

func (s *OrderService) onCallback(_ *orderbook.OrderBook, cb *orderbook.Callback) {
	if e, ok := event.FromCallback(s.book.Symbol(), cb, orderID); ok {
		s.pending = append(s.pending, e)
	}
	switch cb.Type {
	case orderbook.CallbackReject, orderbook.CallbackCancel:
		s.retire(cb.Order)
	case orderbook.CallbackFill:
		s.retire(cb.Order)
		s.retire(cb.MatchedOrder)
	}
}

func (s *OrderService) OnDepthChange(book *orderbook.OrderBook, d *depth.Depth) {
	s.pending = append(s.pending, event.FromDepth(book.Symbol(), event.KindDepth, d))
}

func (s *OrderService) OnBboChange(book *orderbook.OrderBook, d *depth.Depth) {
	e := event.FromDepth(book.Symbol(), event.KindBbo, d)
	e.Bids, e.Asks = e.Bids[:min(1, len(e.Bids))], e.Asks[:min(1, len(e.Asks))]
	s.pending = append(s.pending, e)
}

func orderID(o orderbook.Order) uint64 {
	return o.(*order.SimpleOrder).ID
}
