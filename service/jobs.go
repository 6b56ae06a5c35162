package service

import (
	"context"
	"time"
)

// Reclaim runs one reclamation scan and returns how many documents it freed.
func (s *Service) Reclaim() int {
	n := s.cell.Domain().Scan()
	if n > 0 {
		s.log.Debug("reclaimed", "count", n, "retired", s.cell.Domain().Stats().Retired)
	}
	return n
}

// Compact deletes stored documents older than the newest keep versions,
// along with outbox records already acknowledged for them.
func (s *Service) Compact(keep uint64) error {
	if keep == 0 {
		keep = 1
	}
	cur := s.seq.Current()
	if cur <= keep {
		return nil
	}
	before := cur - keep + 1
	if err := s.store.TruncateBefore(before); err != nil {
		return err
	}
	purged, err := s.store.PurgeAcked(before)
	if err != nil {
		return err
	}
	s.log.Debug("compacted", "before", before, "purged", purged)
	return nil
}

// RunReclaimer scans for reclaimable documents every interval. Writes scan
// on their own once enough documents are retired; this catches the tail
// left behind when writes stop.
func (s *Service) RunReclaimer(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Reclaim()
		}
	}
}

// RunCompaction trims document history every interval.
func (s *Service) RunCompaction(ctx context.Context, interval time.Duration, keep uint64) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Compact(keep); err != nil {
				s.log.Warn("compaction failed", "err", err)
			}
		}
	}
}
