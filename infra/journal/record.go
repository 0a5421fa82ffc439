package journal

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"matchbook/domain/orderbook"
)

// ErrCorrupt reports a record whose checksum or payload does not verify.
var ErrCorrupt = errors.New("journal: corrupt record")

// RecordType is the command a record carries.
type RecordType uint8

const (
	RecordPlace RecordType = iota + 1
	RecordCancel
	RecordReplace
	RecordMarketPrice
)

func (t RecordType) String() string {
	switch t {
	case RecordPlace:
		return "place"
	case RecordCancel:
		return "cancel"
	case RecordReplace:
		return "replace"
	case RecordMarketPrice:
		return "market_price"
	default:
		return fmt.Sprintf("record(%d)", uint8(t))
	}
}

// Record is one framed journal entry.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

// Command is the decoded payload of a record. Fields a record type does not
// use are left zero.
type Command struct {
	OrderID    uint64
	Buy        bool
	Price      orderbook.Price
	StopPrice  orderbook.Price
	Quantity   orderbook.Quantity
	Conditions orderbook.OrderConditions
	SizeDelta  orderbook.Quantity
}

// payload field numbers
const (
	fieldOrderID protowire.Number = iota + 1
	fieldBuy
	fieldPrice
	fieldStopPrice
	fieldQuantity
	fieldConditions
	fieldSizeDelta
)

// NewRecord frames cmd as a record of type t stamped with the current time.
func NewRecord(t RecordType, seq uint64, cmd Command) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: EncodeCommand(cmd),
	}
}

// Command decodes the record payload.
func (r *Record) Command() (Command, error) {
	return DecodeCommand(r.Data)
}

// EncodeCommand writes cmd in protobuf wire format, skipping zero fields.
func EncodeCommand(cmd Command) []byte {
	var b []byte
	putVarint := func(n protowire.Number, v uint64) {
		if v == 0 {
			return
		}
		b = protowire.AppendTag(b, n, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	}
	putSigned := func(n protowire.Number, v int64) {
		putVarint(n, protowire.EncodeZigZag(v))
	}

	putVarint(fieldOrderID, cmd.OrderID)
	putVarint(fieldBuy, protowire.EncodeBool(cmd.Buy))
	putSigned(fieldPrice, int64(cmd.Price))
	putSigned(fieldStopPrice, int64(cmd.StopPrice))
	putSigned(fieldQuantity, int64(cmd.Quantity))
	putVarint(fieldConditions, uint64(cmd.Conditions))
	putSigned(fieldSizeDelta, int64(cmd.SizeDelta))
	return b
}

// DecodeCommand parses a payload written by EncodeCommand. Unknown fields
// are skipped.
func DecodeCommand(b []byte) (Command, error) {
	var cmd Command
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Command{}, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Command{}, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Command{}, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldOrderID:
			cmd.OrderID = v
		case fieldBuy:
			cmd.Buy = protowire.DecodeBool(v)
		case fieldPrice:
			cmd.Price = orderbook.Price(protowire.DecodeZigZag(v))
		case fieldStopPrice:
			cmd.StopPrice = orderbook.Price(protowire.DecodeZigZag(v))
		case fieldQuantity:
			cmd.Quantity = orderbook.Quantity(protowire.DecodeZigZag(v))
		case fieldConditions:
			cmd.Conditions = orderbook.OrderConditions(v)
		case fieldSizeDelta:
			cmd.SizeDelta = orderbook.Quantity(protowire.DecodeZigZag(v))
		}
	}
	return cmd, nil
}
