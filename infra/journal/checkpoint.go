package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
)

const checkpointFile = "checkpoint"

// Checkpoint holds the high-water marks of segments TruncateBefore removed:
// the last sequence and the last order id they carried.
type Checkpoint struct {
	Seq     uint64
	OrderID uint64
}

func (c Checkpoint) merge(o Checkpoint) Checkpoint {
	return Checkpoint{Seq: max(c.Seq, o.Seq), OrderID: max(c.OrderID, o.OrderID)}
}

// ReadCheckpoint loads the checkpoint in dir. A journal that never
// truncated has none and yields the zero Checkpoint.
func ReadCheckpoint(dir string) (Checkpoint, error) {
	b, err := os.ReadFile(filepath.Join(dir, checkpointFile))
	if errors.Is(err, os.ErrNotExist) {
		return Checkpoint{}, nil
	}
	if err != nil {
		return Checkpoint{}, err
	}
	if len(b) != 20 || crc32.ChecksumIEEE(b[:16]) != binary.BigEndian.Uint32(b[16:]) {
		return Checkpoint{}, fmt.Errorf("%w: checkpoint", ErrCorrupt)
	}
	return Checkpoint{
		Seq:     binary.BigEndian.Uint64(b[0:8]),
		OrderID: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// writeCheckpoint replaces the checkpoint atomically.
func writeCheckpoint(dir string, c Checkpoint) error {
	buf := make([]byte, 20)
	binary.BigEndian.PutUint64(buf[0:8], c.Seq)
	binary.BigEndian.PutUint64(buf[8:16], c.OrderID)
	binary.BigEndian.PutUint32(buf[16:], crc32.ChecksumIEEE(buf[:16]))

	tmp := filepath.Join(dir, checkpointFile+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, checkpointFile))
}

// segmentMarks scans a segment for its highest sequence and the highest
// order id its Place records carry.
func segmentMarks(path string) (Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Checkpoint{}, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var c Checkpoint
	for {
		rec, err := readRecord(r)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return c, nil
		case err != nil:
			return c, err
		}
		c.Seq = max(c.Seq, rec.Seq)
		if rec.Type != RecordPlace {
			continue
		}
		cmd, err := rec.Command()
		if err != nil {
			return c, err
		}
		c.OrderID = max(c.OrderID, cmd.OrderID)
	}
}
