package broadcaster

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"matchbook/infra/kafka"
	"matchbook/infra/outbox"
)

type counter struct{ ok, failed int }

func (c *counter) Published(ok bool) {
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}

type flaky struct {
	failures int
	sent     [][]byte
}

func (f *flaky) Publish(_ context.Context, _, value []byte) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("broker down")
	}
	f.sent = append(f.sent, value)
	return nil
}

func (f *flaky) Close() error { return nil }

func openOutbox(t *testing.T) *outbox.Outbox {
	t.Helper()
	o, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestDrainPublishesInOrderAndDeletes(t *testing.T) {
	o := openOutbox(t)
	for _, seq := range []uint64{3, 1, 2} {
		require.NoError(t, o.PutNew(seq, []byte{byte(seq)}))
	}
	p := &flaky{}
	c := &counter{}
	b := New(o, p, time.Second, c, slog.New(slog.DiscardHandler))

	require.Equal(t, 3, b.drainOnce(context.Background()))
	require.Equal(t, [][]byte{{1}, {2}, {3}}, p.sent)
	require.Equal(t, 3, c.ok)

	_, err := o.Get(1)
	require.ErrorIs(t, err, outbox.ErrNotFound)
}

func TestFailureStopsDrainAndRetries(t *testing.T) {
	o := openOutbox(t)
	require.NoError(t, o.PutNew(1, []byte("a")))
	require.NoError(t, o.PutNew(2, []byte("b")))
	p := &flaky{failures: 1}
	b := New(o, p, time.Second, nil, slog.New(slog.DiscardHandler))

	require.Zero(t, b.drainOnce(context.Background()))
	e, err := o.Get(1)
	require.NoError(t, err)
	require.Equal(t, outbox.StateNew, e.State)
	require.Equal(t, uint32(1), e.Retries)

	require.Equal(t, 2, b.drainOnce(context.Background()))
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, p.sent)
}

func TestExhaustedRetriesMarkFailed(t *testing.T) {
	o := openOutbox(t)
	require.NoError(t, o.PutNew(1, []byte("a")))
	b := New(o, &flaky{failures: 10}, time.Second, nil, slog.New(slog.DiscardHandler))
	b.MaxRetries = 2

	b.drainOnce(context.Background())
	b.drainOnce(context.Background())
	e, err := o.Get(1)
	require.NoError(t, err)
	require.Equal(t, outbox.StateFailed, e.State)

	var failed []uint64
	require.NoError(t, o.ScanByState(outbox.StateFailed, func(seq uint64, _ outbox.Entry) error {
		failed = append(failed, seq)
		return nil
	}))
	require.Equal(t, []uint64{1}, failed)
}

func TestStartWithSaramaProducer(t *testing.T) {
	o := openOutbox(t)
	require.NoError(t, o.PutNew(1, []byte("event")))

	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndSucceed()
	b := New(o, kafka.NewSaramaPublisherWith(producer, "events"), 5*time.Millisecond, nil, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	require.Eventually(t, func() bool {
		_, err := o.Get(1)
		return errors.Is(err, outbox.ErrNotFound)
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, b.Close())
}
