package memory

import (
	"context"
	"time"

	"github.com/yndnr/meshkv/internal/core/domain"
)

// DeleteExpired removes every entry past its deadline from all databases
// and returns how many were removed.
func (s *Store) DeleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMs := s.now().UnixMilli()
	removed := 0
	for _, db := range s.dbs {
		removed += purgeExpired(db, nowMs)
	}
	s.expiredActive.Add(uint64(removed))
	return removed
}

// RunExpirer sweeps expired keys every interval until ctx is cancelled.
// A non-positive interval disables the sweep and returns immediately.
func (s *Store) RunExpirer(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.DeleteExpired()
		case <-ctx.Done():
			return
		}
	}
}

func purgeExpired(db map[string]*domain.Entry, nowMs int64) int {
	n := 0
	for k, e := range db {
		if e.IsExpired(nowMs) {
			delete(db, k)
			n++
		}
	}
	return n
}
