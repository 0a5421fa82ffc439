// Package broadcaster drains the outbox to Kafka.
package broadcaster

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"matchbook/infra/kafka"
	"matchbook/infra/outbox"
)

// Recorder counts delivery attempts. *metrics.Metrics implements it.
type Recorder interface {
	Published(ok bool)
}

type Broadcaster struct {
	outbox    *outbox.Outbox
	publisher kafka.Publisher
	interval  time.Duration
	recorder  Recorder
	log       *slog.Logger
	done      chan struct{}
	// MaxRetries marks an entry FAILED after this many attempts. Zero
	// retries forever.
	MaxRetries uint32
}

func New(o *outbox.Outbox, p kafka.Publisher, interval time.Duration, r Recorder, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		outbox:    o,
		publisher: p,
		interval:  interval,
		recorder:  r,
		log:       log,
	}
}

// Start polls the outbox until ctx ends.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", "interval", b.interval)
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce(ctx)
			}
		}
	}()
}

// drainOnce publishes every NEW entry in sequence order, stopping at the
// first failure so events stay ordered on the topic.
func (b *Broadcaster) drainOnce(ctx context.Context) int {
	sent := 0
	err := b.outbox.ScanByState(outbox.StateNew, func(seq uint64, e outbox.Entry) error {
		if err := b.publisher.Publish(ctx, []byte(strconv.FormatUint(seq, 10)), e.Payload); err != nil {
			b.record(false)
			retries := e.Retries + 1
			state := outbox.StateNew
			if b.MaxRetries > 0 && retries >= b.MaxRetries {
				state = outbox.StateFailed
				b.log.Error("outbox entry failed", "seq", seq, "retries", retries, "err", err)
			}
			if uerr := b.outbox.UpdateState(seq, state, retries); uerr != nil {
				return uerr
			}
			return errStop
		}
		b.record(true)
		sent++
		return b.outbox.Delete(seq)
	})
	if err != nil && !errors.Is(err, errStop) {
		b.log.Error("outbox scan failed", "err", err)
	}
	return sent
}

func (b *Broadcaster) record(ok bool) {
	if b.recorder != nil {
		b.recorder.Published(ok)
	}
}

var errStop = errors.New("stop draining")

// Close waits for the poll loop, which must already be cancelled, and
// closes the publisher.
func (b *Broadcaster) Close() error {
	if b.done != nil {
		<-b.done
	}
	return b.publisher.Close()
}
