package orderbook

// CallbackType tags a Callback.
type CallbackType uint8

const (
	CallbackUnknown CallbackType = iota
	CallbackAccept
	CallbackReject
	CallbackFill
	CallbackCancel
	CallbackCancelReject
	CallbackReplace
	CallbackReplaceReject
	CallbackBookUpdate
	// CallbackStopTrigger announces that a parked stop order was submitted.
	CallbackStopTrigger
)

func (t CallbackType) String() string {
	switch t {
	case CallbackAccept:
		return "accept"
	case CallbackReject:
		return "reject"
	case CallbackFill:
		return "fill"
	case CallbackCancel:
		return "cancel"
	case CallbackCancelReject:
		return "cancel_reject"
	case CallbackReplace:
		return "replace"
	case CallbackReplaceReject:
		return "replace_reject"
	case CallbackBookUpdate:
		return "book_update"
	case CallbackStopTrigger:
		return "stop_trigger"
	default:
		return "unknown"
	}
}

// FillFlags records which side of a fill became fully filled.
type FillFlags uint8

const (
	NeitherFilled FillFlags = 0
	InboundFilled FillFlags = 1
	MatchedFilled FillFlags = 2
	BothFilled    FillFlags = InboundFilled | MatchedFilled
)

// Callback is one event produced while a public book call runs.
//
// Quantity means: accepted (already filled) quantity for Accept and
// StopTrigger, traded quantity for Fill, open quantity for Cancel and the
// open quantity before the change for Replace.
type Callback struct {
	Type         CallbackType
	Order        Order
	MatchedOrder Order
	Quantity     Quantity
	// Price is the trade price for Fill, the new price for Replace and the
	// tracker price for Cancel.
	Price Price
	// OldPrice is the price the order rested at before a Replace.
	OldPrice Price
	Delta    Quantity
	Flags    FillFlags
	// InboundPrice and MatchedPrice are the limit prices the two sides of a
	// fill rest or were submitted at.
	InboundPrice Price
	MatchedPrice Price
	// Stopped marks Accept and Cancel callbacks of parked stop orders.
	Stopped bool
	Reason  string
}

// Cost is Price times Quantity for a fill.
func (c *Callback) Cost() Cost {
	return Cost(c.Price) * Cost(c.Quantity)
}

func (c *Callback) InboundFilled() bool { return c.Flags&InboundFilled != 0 }
func (c *Callback) MatchedFilled() bool { return c.Flags&MatchedFilled != 0 }
