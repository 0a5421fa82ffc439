package service

import "errors"

var (
	ErrUnknownOrder = errors.New("unknown order")
	ErrInvalidOrder = errors.New("invalid order")
	// ErrEngineFault is returned once an invariant violation has poisoned
	// the book. Every later write fails with it.
	ErrEngineFault = errors.New("engine fault")
)
