// Package event is the outbound view of book activity: what the outbox,
// trade tape, metrics and market-data feed consume.
package event

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"matchbook/domain/depth"
	"matchbook/domain/orderbook"
)

type Kind string

const (
	KindAccept        Kind = "accept"
	KindReject        Kind = "reject"
	KindFill          Kind = "fill"
	KindCancel        Kind = "cancel"
	KindCancelReject  Kind = "cancel_reject"
	KindReplace       Kind = "replace"
	KindReplaceReject Kind = "replace_reject"
	KindStopTrigger   Kind = "stop_trigger"
	KindDepth         Kind = "depth"
	KindBbo           Kind = "bbo"
)

// Level is one published depth level.
type Level struct {
	Price    orderbook.Price
	Orders   int
	Quantity orderbook.Quantity
}

type Event struct {
	Seq    uint64
	Symbol string
	Kind   Kind
	// Time is in Unix milliseconds; JSON numbers cannot carry nanoseconds.
	Time      int64
	OrderID   uint64
	MatchedID uint64
	Buy       bool
	Price     orderbook.Price
	Quantity  orderbook.Quantity
	Cost      orderbook.Cost
	Reason    string
	Bids      []Level
	Asks      []Level
}

// FromCallback converts an order callback. Book updates carry no event and
// report false. id resolves an order to its identifier.
func FromCallback(symbol string, cb *orderbook.Callback, id func(orderbook.Order) uint64) (Event, bool) {
	e := Event{Symbol: symbol}
	if cb.Order != nil {
		e.OrderID = id(cb.Order)
		e.Buy = cb.Order.IsBuy()
	}

	switch cb.Type {
	case orderbook.CallbackAccept:
		e.Kind = KindAccept
		e.Price = cb.Order.Price()
		e.Quantity = cb.Order.Quantity()
	case orderbook.CallbackReject:
		e.Kind, e.Reason = KindReject, cb.Reason
	case orderbook.CallbackFill:
		e.Kind = KindFill
		e.MatchedID = id(cb.MatchedOrder)
		e.Price, e.Quantity, e.Cost = cb.Price, cb.Quantity, cb.Cost()
	case orderbook.CallbackCancel:
		e.Kind, e.Price, e.Quantity = KindCancel, cb.Price, cb.Quantity
	case orderbook.CallbackCancelReject:
		e.Kind, e.Reason = KindCancelReject, cb.Reason
	case orderbook.CallbackReplace:
		e.Kind, e.Price, e.Quantity = KindReplace, cb.Price, cb.Quantity+cb.Delta
	case orderbook.CallbackReplaceReject:
		e.Kind, e.Reason = KindReplaceReject, cb.Reason
	case orderbook.CallbackStopTrigger:
		e.Kind, e.Price, e.Quantity = KindStopTrigger, cb.Order.StopPrice(), cb.Quantity
	default:
		return Event{}, false
	}
	return e, true
}

// FromDepth captures the published levels of d.
func FromDepth(symbol string, kind Kind, d *depth.Depth) Event {
	return Event{
		Symbol: symbol,
		Kind:   kind,
		Bids:   levels(d.Bids()),
		Asks:   levels(d.Asks()),
	}
}

func levels(ls []*depth.Level) []Level {
	out := make([]Level, 0, len(ls))
	for _, l := range ls {
		out = append(out, Level{Price: l.Price(), Orders: l.OrderCount(), Quantity: l.AggregateQty()})
	}
	return out
}

// Struct renders e as a protobuf Struct, omitting empty fields.
func (e Event) Struct() (*structpb.Struct, error) {
	m := map[string]any{
		"seq":    e.Seq,
		"symbol": e.Symbol,
		"kind":   string(e.Kind),
		"time":   e.Time,
	}
	if e.OrderID != 0 {
		m["order_id"] = e.OrderID
		m["buy"] = e.Buy
	}
	if e.MatchedID != 0 {
		m["matched_id"] = e.MatchedID
	}
	if e.Price != 0 {
		m["price"] = int64(e.Price)
	}
	if e.Quantity != 0 {
		m["quantity"] = int64(e.Quantity)
	}
	if e.Cost != 0 {
		m["cost"] = int64(e.Cost)
	}
	if e.Reason != "" {
		m["reason"] = e.Reason
	}
	if e.Kind == KindDepth || e.Kind == KindBbo {
		m["bids"] = levelList(e.Bids)
		m["asks"] = levelList(e.Asks)
	}
	return structpb.NewStruct(m)
}

func levelList(ls []Level) []any {
	out := make([]any, 0, len(ls))
	for _, l := range ls {
		out = append(out, map[string]any{
			"price":    int64(l.Price),
			"orders":   l.Orders,
			"quantity": int64(l.Quantity),
		})
	}
	return out
}

// Marshal encodes e as protobuf JSON.
func (e Event) Marshal() ([]byte, error) {
	s, err := e.Struct()
	if err != nil {
		return nil, fmt.Errorf("event struct: %w", err)
	}
	return protojson.Marshal(s)
}

// Unmarshal decodes bytes written by Marshal.
func Unmarshal(b []byte) (Event, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(b, &s); err != nil {
		return Event{}, fmt.Errorf("event decode: %w", err)
	}
	return FromStruct(&s), nil
}

// FromStruct reads an event rendered by Struct.
func FromStruct(s *structpb.Struct) Event {
	f := s.GetFields()
	num := func(k string) int64 { return int64(f[k].GetNumberValue()) }

	e := Event{
		Seq:       uint64(num("seq")),
		Symbol:    f["symbol"].GetStringValue(),
		Kind:      Kind(f["kind"].GetStringValue()),
		Time:      num("time"),
		OrderID:   uint64(num("order_id")),
		MatchedID: uint64(num("matched_id")),
		Buy:       f["buy"].GetBoolValue(),
		Price:     orderbook.Price(num("price")),
		Quantity:  orderbook.Quantity(num("quantity")),
		Cost:      orderbook.Cost(num("cost")),
		Reason:    f["reason"].GetStringValue(),
	}
	e.Bids = parseLevels(f["bids"].GetListValue())
	e.Asks = parseLevels(f["asks"].GetListValue())
	return e
}

func parseLevels(l *structpb.ListValue) []Level {
	var out []Level
	for _, v := range l.GetValues() {
		f := v.GetStructValue().GetFields()
		out = append(out, Level{
			Price:    orderbook.Price(f["price"].GetNumberValue()),
			Orders:   int(f["orders"].GetNumberValue()),
			Quantity: orderbook.Quantity(f["quantity"].GetNumberValue()),
		})
	}
	return out
}
