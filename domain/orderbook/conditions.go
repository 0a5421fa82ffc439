package orderbook

import "strings"

// OrderConditions is a bitmask of order handling conditions.
type OrderConditions uint8

const (
	NoConditions      OrderConditions = 0
	AllOrNone         OrderConditions = 1
	ImmediateOrCancel OrderConditions = 2
	FillOrKill        OrderConditions = AllOrNone | ImmediateOrCancel
)

func (c OrderConditions) AllOrNone() bool         { return c&AllOrNone != 0 }
func (c OrderConditions) ImmediateOrCancel() bool { return c&ImmediateOrCancel != 0 }

func (c OrderConditions) String() string {
	switch c {
	case NoConditions:
		return "NONE"
	case FillOrKill:
		return "FOK"
	}
	var parts []string
	if c.AllOrNone() {
		parts = append(parts, "AON")
	}
	if c.ImmediateOrCancel() {
		parts = append(parts, "IOC")
	}
	return strings.Join(parts, "|")
}

// ParseConditions maps the names produced by String back to a mask.
// Unknown names are ignored.
func ParseConditions(s string) OrderConditions {
	var c OrderConditions
	for _, p := range strings.Split(strings.ToUpper(s), "|") {
		switch strings.TrimSpace(p) {
		case "AON":
			c |= AllOrNone
		case "IOC":
			c |= ImmediateOrCancel
		case "FOK":
			c |= FillOrKill
		}
	}
	return c
}
