// Package outbox keeps book events durable until a publisher has delivered
// them.
package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

var ErrNotFound = errors.New("outbox: entry not found")

type State uint8

const (
	StateNew State = iota
	// StateFailed entries exhausted their retries and are skipped.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Entry is one pending event and its delivery state.
type Entry struct {
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const entryHeader = 1 + 4 + 8

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeEntry(e Entry) []byte {
	buf := make([]byte, entryHeader+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[entryHeader:], e.Payload)
	return buf
}

func decodeEntry(b []byte) (Entry, error) {
	if len(b) < entryHeader {
		return Entry{}, errors.New("outbox: short entry")
	}
	return Entry{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[entryHeader:]...),
	}, nil
}

type Outbox struct {
	db *pebble.DB

	mu sync.Mutex
	// highest sequence ever stored, deleted entries included
	last uint64
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("outbox open: %w", err)
	}
	o := &Outbox{db: db}
	if o.last, err = o.loadLastSeq(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox high-water: %w", err)
	}
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// PutNew stores payload under seq in state NEW and raises the high-water
// mark in the same batch.
func (o *Outbox) PutNew(seq uint64, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	b := o.db.NewBatch()
	defer b.Close()
	if err := b.Set(keyFor(seq), encodeEntry(Entry{State: StateNew, Payload: payload}), nil); err != nil {
		return err
	}
	if seq > o.last {
		if err := b.Set([]byte(lastSeqKey), binary.BigEndian.AppendUint64(nil, seq), nil); err != nil {
			return err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	o.last = max(o.last, seq)
	return nil
}

// UpdateState records a delivery attempt, keeping the payload.
func (o *Outbox) UpdateState(seq uint64, state State, retries uint32) error {
	e, err := o.Get(seq)
	if err != nil {
		return err
	}
	e.State = state
	e.Retries = retries
	e.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

// Delete removes an entry once it is acknowledged.
func (o *Outbox) Delete(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

func (o *Outbox) Get(seq uint64) (Entry, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, seq)
	}
	if err != nil {
		return Entry{}, err
	}
	defer closer.Close()
	return decodeEntry(val)
}

// ScanByState visits entries in state in sequence order.
func (o *Outbox) ScanByState(state State, fn func(seq uint64, e Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		e, err := decodeEntry(iter.Value())
		if err != nil {
			return err
		}
		if e.State != state {
			continue
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(seq, e); err != nil {
			return err
		}
	}
	return iter.Error()
}

// LastSeq is the highest sequence ever stored, or 0 for a new outbox.
// Delivered and deleted entries still count, so a restart never reuses a
// sequence.
func (o *Outbox) LastSeq() (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, nil
}

func (o *Outbox) loadLastSeq() (uint64, error) {
	var last uint64
	val, closer, err := o.db.Get([]byte(lastSeqKey))
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		if len(val) == 8 {
			last = binary.BigEndian.Uint64(val)
		}
		_ = closer.Close()
	}

	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	if iter.Last() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return 0, err
		}
		last = max(last, seq)
	}
	return last, iter.Error()
}

const (
	keyPrefix  = "event/"
	lastSeqKey = "meta/last_seq"
)

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf(keyPrefix+"%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}
