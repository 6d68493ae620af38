package memory

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/meshkv/internal/core/domain"
)

// DefaultDatabases is the number of databases when none is configured.
const DefaultDatabases = 16

// Store owns the multi-database keyspace.
type Store struct {
	mu  sync.Mutex
	dbs []map[string]*domain.Entry

	now func() time.Time

	expiredLazy   atomic.Uint64
	expiredActive atomic.Uint64
}

// Stats is a point-in-time view of expiration counters.
type Stats struct {
	ExpiredLazy   uint64
	ExpiredActive uint64
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source used for TTL bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a keyspace with the given number of databases.
func New(databases int, opts ...Option) *Store {
	if databases <= 0 {
		databases = DefaultDatabases
	}

	s := &Store{
		dbs: make([]map[string]*domain.Entry, databases),
		now: time.Now,
	}
	for i := range s.dbs {
		s.dbs[i] = make(map[string]*domain.Entry)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Databases returns the fixed database count.
func (s *Store) Databases() int {
	return len(s.dbs)
}

// Exec runs fn with exclusive access to the whole keyspace.
//
// The Tx is only valid inside fn. Every operation in fn sees the same
// "now", taken when the lock was acquired.
func (s *Store) Exec(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s, nowMs: s.now().UnixMilli()}
	return fn(tx)
}

// Stats returns expiration counters.
func (s *Store) Stats() Stats {
	return Stats{
		ExpiredLazy:   s.expiredLazy.Load(),
		ExpiredActive: s.expiredActive.Load(),
	}
}

// KeyCounts returns the number of stored entries per database, including
// entries past their deadline that have not been purged yet.
func (s *Store) KeyCounts() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, len(s.dbs))
	for i, db := range s.dbs {
		out[i] = len(db)
	}
	return out
}
