package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Write replaces the snapshot file atomically.
func (w *Writer) Write(s *Snapshot) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(w.Dir, fileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(s); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), w.Path())
}

func (w *Writer) Path() string {
	return filepath.Join(w.Dir, fileName)
}

// Read loads a snapshot written by Writer.
func Read(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return &s, nil
}
