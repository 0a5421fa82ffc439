package service

import (
	"context"
	"time"

	"matchbook/snapshot"
)

// StartSnapshotJob writes a snapshot every interval until ctx ends. With
// truncate set, journal segments covered by the snapshot are removed.
func (s *OrderService) StartSnapshotJob(ctx context.Context, w *snapshot.Writer, interval time.Duration, truncate bool) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.writeSnapshot(w, truncate)
			}
		}
	}()
}

func (s *OrderService) writeSnapshot(w *snapshot.Writer, truncate bool) {
	snap := s.Snapshot()
	if err := w.Write(snap); err != nil {
		s.log.Error("snapshot write failed", "seq", snap.Seq, "err", err)
		return
	}
	s.log.Debug("snapshot written", "seq", snap.Seq, "orders", len(snap.Orders))

	if truncate && s.journal != nil {
		if err := s.journal.TruncateBefore(snap.Seq); err != nil {
			s.log.Error("journal truncate failed", "seq", snap.Seq, "err", err)
		}
	}
}
