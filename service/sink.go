package service

import (
	"fmt"

	"matchbook/domain/event"
	"matchbook/infra/outbox"
)

// Sink receives every event the book produces, in sequence order.
type Sink interface {
	Consume(e event.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e event.Event) error

func (f SinkFunc) Consume(e event.Event) error { return f(e) }

// OutboxSink stores events for the broadcaster. Depth and BBO events are
// stored too so downstream consumers can rebuild the book view.
func OutboxSink(o *outbox.Outbox) Sink {
	return SinkFunc(func(e event.Event) error {
		b, err := e.Marshal()
		if err != nil {
			return err
		}
		if err := o.PutNew(e.Seq, b); err != nil {
			return fmt.Errorf("outbox put %d: %w", e.Seq, err)
		}
		return nil
	})
}
