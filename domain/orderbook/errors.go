package orderbook

import (
	"errors"
	"fmt"
)

// Invariant codes carried by InvariantError.
const (
	CodeTrackerOverfill    = "TRACKER_OVERFILL"
	CodeTrackerNegative    = "TRACKER_NEGATIVE_QUANTITY"
	CodeTrackerOverReserve = "TRACKER_OVER_RESERVE"
	CodeDepthLevelEmpty    = "DEPTH_LEVEL_EMPTY"
	CodeDepthOverclose     = "DEPTH_LEVEL_OVERCLOSE"
	CodeDepthIgnorePending = "DEPTH_IGNORE_PENDING"
)

// Reject reasons reported through callbacks.
const (
	ReasonSizeNotPositive = "size must be positive"
	ReasonNotFound        = "not found"
	ReasonAlreadyFilled   = "order is already filled"
)

// InvariantError is the panic value raised when book or depth state would be
// corrupted. It is never a business outcome.
type InvariantError struct {
	Code   string
	Detail string
}

func (e *InvariantError) Error() string {
	return e.Code + ": " + e.Detail
}

func invariant(code, format string, args ...any) {
	panic(&InvariantError{Code: code, Detail: fmt.Sprintf(format, args...)})
}

// Invariant panics with an InvariantError. Exported for the depth package.
func Invariant(code, format string, args ...any) {
	invariant(code, format, args...)
}

// AsInvariant extracts an InvariantError from a recovered panic value.
func AsInvariant(v any) (*InvariantError, bool) {
	err, ok := v.(error)
	if !ok {
		return nil, false
	}
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// IsInvariant reports whether a recovered panic value is an InvariantError.
func IsInvariant(v any) bool {
	_, ok := AsInvariant(v)
	return ok
}
