package pool

import (
	"time"

	"go.uber.org/atomic"
)

// Stats is a point-in-time snapshot of a pool's counters, safe to read
// and retain after it is returned; it will not change underneath the caller.
type Stats struct {
	// PoolSize is the number of objects currently tracked by the pool,
	// borrowed or idle.
	PoolSize int

	// CreatedCount is the total number of objects ever created by Manager.Create.
	CreatedCount int64

	// InvalidCount is the total number of objects ever invalidated and
	// removed from the pool.
	InvalidCount int64

	// BorrowedCount is the total number of successful Borrow calls.
	BorrowedCount int64

	// ReturnedCount is the total number of Return calls that put the object
	// back on the idle deque; returns that invalidate the object are not
	// counted.
	ReturnedCount int64

	// LastAccessTime is the time of the most recent successful Borrow or of
	// the most recent Return that put an object back on the idle deque.
	LastAccessTime time.Time
}

// poolStats holds the pool's live counters, each an independent atomic.
// PoolSize increments and CreatedCount are recorded under the pool's
// createLock when an object is created; PoolSize decrements and InvalidCount
// are recorded when an object is invalidated, under poolLock but not under
// createLock. BorrowedCount/ReturnedCount/LastAccessTime are plain atomics
// since Borrow/Return happen far more often and shouldn't contend with
// creation/eviction bookkeeping.
type poolStats struct {
	poolSize     atomic.Int64
	createdCnt   atomic.Int64
	invalidCnt   atomic.Int64
	borrowedCnt  atomic.Int64
	returnedCnt  atomic.Int64
	lastAccessAt atomic.Time
}

func newPoolStats() *poolStats {
	return &poolStats{}
}

func (s *poolStats) recordCreated() {
	s.poolSize.Inc()
	s.createdCnt.Inc()
}

func (s *poolStats) recordInvalidated() {
	s.poolSize.Dec()
	s.invalidCnt.Inc()
}

func (s *poolStats) recordBorrowed() {
	s.borrowedCnt.Inc()
	s.lastAccessAt.Store(time.Now())
}

func (s *poolStats) recordReturned() {
	s.returnedCnt.Inc()
	s.lastAccessAt.Store(time.Now())
}

func (s *poolStats) snapshot() Stats {
	return Stats{
		PoolSize:       int(s.poolSize.Load()),
		CreatedCount:   s.createdCnt.Load(),
		InvalidCount:   s.invalidCnt.Load(),
		BorrowedCount:  s.borrowedCnt.Load(),
		ReturnedCount:  s.returnedCnt.Load(),
		LastAccessTime: s.lastAccessAt.Load(),
	}
}
