package journal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"sync"
)

// Frame: [type:1][seq:8][time:8][len:4][payload][crc:4]. The checksum
// covers the header and payload.
const headerSize = 1 + 8 + 8 + 4

type Config struct {
	Dir         string
	SegmentSize int64
	// SyncEveryWrite fsyncs after each append.
	SyncEveryWrite bool
}

// Journal is an append-only command log split into size-bounded segments.
type Journal struct {
	mu       sync.Mutex
	cfg      Config
	current  *segment
	segIndex int
}

// Open prepares dir and starts a segment after any found there, so a torn
// tail left by a crash is never followed by new records.
func Open(cfg Config) (*Journal, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}
	files, err := segments(cfg.Dir)
	if err != nil {
		return nil, err
	}
	idx := 0
	if len(files) > 0 {
		if idx, err = segmentIndex(files[len(files)-1]); err != nil {
			return nil, fmt.Errorf("journal segment name: %w", err)
		}
		idx++
	}
	seg, err := openSegment(cfg.Dir, idx)
	if err != nil {
		return nil, err
	}
	return &Journal{cfg: cfg, current: seg, segIndex: idx}, nil
}

// Append frames r and writes it to the current segment, rotating once the
// segment reaches its size.
func (j *Journal) Append(r *Record) error {
	buf := encodeFrame(r)

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.current.append(buf); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	if j.cfg.SyncEveryWrite {
		if err := j.current.sync(); err != nil {
			return fmt.Errorf("journal sync: %w", err)
		}
	}
	if j.cfg.SegmentSize > 0 && j.current.offset >= j.cfg.SegmentSize {
		return j.rotate()
	}
	return nil
}

func (j *Journal) rotate() error {
	if err := j.current.sync(); err != nil {
		return err
	}
	_ = j.current.close()
	j.segIndex++

	seg, err := openSegment(j.cfg.Dir, j.segIndex)
	if err != nil {
		return err
	}
	j.current = seg
	return nil
}

// Dir is the directory the journal writes to.
func (j *Journal) Dir() string { return j.cfg.Dir }

// Close flushes and closes the current segment.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.current.sync(); err != nil {
		return err
	}
	return j.current.close()
}

// TruncateBefore removes closed segments whose records all have a sequence
// at or below seq. The segment being written is kept. The marks of removed
// segments are folded into the checkpoint first, so ReadCheckpoint still
// reports them.
func (j *Journal) TruncateBefore(seq uint64) error {
	j.mu.Lock()
	current := j.current.file.Name()
	j.mu.Unlock()

	files, err := segments(j.cfg.Dir)
	if err != nil {
		return err
	}
	cp, err := ReadCheckpoint(j.cfg.Dir)
	if err != nil {
		return err
	}

	var doomed []string
	next := cp
	for _, path := range files {
		if path == current {
			continue
		}
		marks, err := segmentMarks(path)
		if err != nil {
			continue
		}
		if marks.Seq <= seq {
			doomed = append(doomed, path)
			next = next.merge(marks)
		}
	}
	if len(doomed) == 0 {
		return nil
	}
	if next != cp {
		if err := writeCheckpoint(j.cfg.Dir, next); err != nil {
			return fmt.Errorf("journal checkpoint: %w", err)
		}
	}
	for _, path := range doomed {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

func encodeFrame(r *Record) []byte {
	payloadLen := uint32(len(r.Data))
	buf := make([]byte, headerSize+payloadLen+4)

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[headerSize:], r.Data)

	sum := crc32.ChecksumIEEE(buf[:headerSize+payloadLen])
	binary.BigEndian.PutUint32(buf[headerSize+payloadLen:], sum)
	return buf
}
