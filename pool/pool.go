// Package pool implements a generic, concurrency-safe object pool that
// amortizes the cost of constructing expensive resources (canonically
// database connections) by reusing a bounded set of them across concurrent
// borrowers.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/amp-labs/objectpool/channels"
	"github.com/amp-labs/objectpool/closer"
	"github.com/amp-labs/objectpool/debug"
	poolerrors "github.com/amp-labs/objectpool/errors"
	"github.com/amp-labs/objectpool/logger"
	"github.com/amp-labs/objectpool/retry"
	"github.com/amp-labs/objectpool/should"
)

// ObjectPool bounds the number of live T instances at Config.MaxPoolSize,
// lazily constructs them via a Manager, blocks (or fails, or no-ops,
// depending on configuration) borrowers when saturated, and evicts objects
// left idle past Config.IdleTimeout.
//
// The zero value is not usable; construct with New.
type ObjectPool[T comparable] struct {
	name    string
	manager Manager[T]
	cfg     Config

	// createLock serializes the capacity-bounded creation path. Parallel
	// pool-filling is intentionally disabled: a losing creator falls back
	// to waiting on the idle deque rather than racing to overshoot capacity.
	createLock sync.Mutex

	// poolLock separates ordinary borrow/return traffic (read side) from
	// Close and eviction (write side), which must run exclusive of all
	// borrow/return activity.
	poolLock sync.RWMutex

	objectsMu  sync.RWMutex
	allObjects map[T]*PooledObject[T]

	idleSend chan<- *PooledObject[T]
	idleRecv <-chan *PooledObject[T]
	idleLen  func() int

	closed atomic.Bool
	stats  *poolStats
}

// New constructs an ObjectPool. name identifies the pool in logs, metrics,
// and DebugInfo output; it should be unique per process if more than one
// pool is running (e.g. one per database shard).
func New[T comparable](name string, manager Manager[T], cfg Config) *ObjectPool[T] {
	cfg = cfg.validated()

	send, recv, length := channels.Create[*PooledObject[T]](cfg.MaxPoolSize)

	return &ObjectPool[T]{
		name:       name,
		manager:    manager,
		cfg:        cfg,
		allObjects: make(map[T]*PooledObject[T], cfg.MaxPoolSize),
		idleSend:   send,
		idleRecv:   recv,
		idleLen:    length,
		stats:      newPoolStats(),
	}
}

// Borrow acquires one object from the pool, transitioning it to BORROWED.
//
// ok is false with a nil error only when Config.PollTimeout == 0 and no
// object was immediately available: the "null-sentinel, not an error"
// outcome the spec reserves for a non-blocking miss. Any other failure is
// reported via err: ErrPoolClosed, ErrCreateFailed, or ErrPollTimeout.
func (p *ObjectPool[T]) Borrow() (T, bool, error) {
	po, ok, err := p.BorrowObject()
	if !ok || err != nil {
		var zero T

		return zero, ok, err
	}

	return po.Object(), true, nil
}

// BorrowObject is Borrow's PooledObject-returning twin: it hands back the
// wrapper itself, whose Close() method is the scoped-acquisition convenience
// that returns the object to this same pool.
func (p *ObjectPool[T]) BorrowObject() (*PooledObject[T], bool, error) {
	for {
		if p.closed.Load() {
			return nil, false, ErrPoolClosed
		}

		if candidate, ok := p.pollIdleNonBlocking(); ok {
			if obj, accepted := p.acceptCandidate(candidate); accepted {
				return obj, true, nil
			}

			continue
		}

		if p.stats.poolSize.Load() < int64(p.cfg.MaxPoolSize) {
			created, createdOK, err := p.tryCreate()
			if err != nil {
				return nil, false, err
			}

			if createdOK {
				created.markBorrowed()
				p.stats.recordBorrowed()
				defaultMetrics.recordBorrowed(p.name)

				return created, true, nil
			}
			// Lost the create race: someone else claimed the slot.
			// Fall through to the poll-wait branch below.
		}

		candidate, timedOut, err := p.pollWait()
		if err != nil {
			return nil, false, err
		}

		if timedOut {
			return nil, false, ErrPollTimeout
		}

		if candidate == nil {
			// pollTimeout == 0, nothing available: the null-sentinel case.
			return nil, false, nil
		}

		if obj, accepted := p.acceptCandidate(candidate); accepted {
			return obj, true, nil
		}
	}
}

// acceptCandidate validates an object popped off the idle deque and, if it
// passes, transitions it to BORROWED. A false return means the candidate
// was stale (already invalid, lost a race, or failed validation) and the
// acquire loop should try again.
func (p *ObjectPool[T]) acceptCandidate(candidate *PooledObject[T]) (*PooledObject[T], bool) {
	p.poolLock.RLock()
	defer p.poolLock.RUnlock()

	if !candidate.IsValid() {
		return nil, false
	}

	if p.cfg.ValidateOnBorrow {
		valid, err := p.manager.Validate(candidate)
		if err != nil || !valid {
			p.invalidateLocked(candidate)

			return nil, false
		}
	}

	if !candidate.compareAndSwapState(StateReturned, StateBorrowed) {
		// Raced with eviction or another borrower; already gone.
		return nil, false
	}

	candidate.cancelEviction()
	candidate.markBorrowed()
	p.stats.recordBorrowed()
	defaultMetrics.recordBorrowed(p.name)

	return candidate, true
}

// tryCreate attempts to create a new object under the create lock,
// re-checking capacity after acquiring it (another creator may have already
// filled the last slot). ok is false, err nil, if capacity was lost to a
// racing creator; err is ErrCreateFailed if Manager.Create exhausted its
// retries.
func (p *ObjectPool[T]) tryCreate() (*PooledObject[T], bool, error) {
	p.createLock.Lock()
	defer p.createLock.Unlock()

	if p.stats.poolSize.Load() >= int64(p.cfg.MaxPoolSize) {
		return nil, false, nil
	}

	runner := retry.NewValueRunner[T](retry.WithAttempts(retry.Attempts(1 + p.cfg.CreateRetryCount))) //nolint:gosec

	obj, err := runner.Do(context.Background(), func(ctx context.Context) (T, error) {
		created, cErr := p.manager.Create()
		if cErr != nil {
			logger.Get().Warn("pool: object creation attempt failed", "pool", p.name, "error", cErr)
			defaultMetrics.recordCreateError(p.name)
		}

		return created, cErr
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	po := newPooledObject[T](uuid.NewString(), obj, p)

	p.objectsMu.Lock()
	p.allObjects[obj] = po
	p.objectsMu.Unlock()

	p.stats.recordCreated()
	defaultMetrics.recordCreated(p.name)

	return po, true, nil
}

// pollIdleNonBlocking implements the acquire algorithm's initial,
// non-blocking head-poll of the idle deque.
func (p *ObjectPool[T]) pollIdleNonBlocking() (*PooledObject[T], bool) {
	select {
	case po := <-p.idleRecv:
		return po, true
	default:
		return nil, false
	}
}

// pollWait implements the acquire algorithm's blocking-wait branch,
// honoring Config.PollTimeout's three modes. timedOut is true only when a
// positive PollTimeout elapsed with nothing available.
func (p *ObjectPool[T]) pollWait() (*PooledObject[T], bool, error) {
	switch {
	case p.cfg.PollTimeout > 0:
		timer := time.NewTimer(p.cfg.PollTimeout)
		defer timer.Stop()

		select {
		case po := <-p.idleRecv:
			return po, false, nil
		case <-timer.C:
			return nil, true, nil
		}

	case p.cfg.PollTimeout < 0:
		po := <-p.idleRecv

		return po, false, nil

	default:
		// PollTimeout == 0: the spec leaves the exact shape of this branch
		// an open question (short park vs. immediate null-sentinel return)
		// since it's reachable only after the non-blocking head-poll above
		// already missed and capacity was full or lost to a race. We take
		// the immediate-return option: it is simplest and the spec says
		// tests must not depend on which.
		return nil, false, nil
	}
}

// pushIdle places a returned object back onto the idle deque tail. The
// channel is sized to MaxPoolSize. Objects evicted while idle are removed
// from allObjects but stay in the channel until a borrower pops and
// discards them, so the channel can also hold entries that no longer count
// toward MaxPoolSize; the send blocks only if the channel is full.
func (p *ObjectPool[T]) pushIdle(po *PooledObject[T]) {
	p.idleSend <- po
}

// Return returns a previously borrowed object to the pool.
//
// A nil/zero input is silently ignored (logged as a warning). An unknown
// identity fails with ErrNotInPool. An object not currently BORROWED fails
// with ErrDoubleReturn. Otherwise the object is re-pooled or, on validation
// failure, a closed pool, or IdleTimeout == 0, invalidated; neither raises
// an error to the caller.
func (p *ObjectPool[T]) Return(obj T) error {
	var zero T
	if obj == zero {
		logger.Get().Warn("pool: Return called with zero-value object", "pool", p.name)

		return nil
	}

	p.objectsMu.RLock()
	po, known := p.allObjects[obj]
	p.objectsMu.RUnlock()

	if !known {
		return ErrNotInPool
	}

	if !po.compareAndSwapState(StateBorrowed, StateReturned) {
		return ErrDoubleReturn
	}

	p.poolLock.RLock()
	defer p.poolLock.RUnlock()

	po.cancelEviction()

	invalidate := p.closed.Load() || p.cfg.IdleTimeout == 0 || !po.IsValid()
	if !invalidate && p.cfg.ValidateOnReturn {
		valid, err := p.manager.Validate(po)
		if err != nil || !valid {
			invalidate = true
		}
	}

	if invalidate {
		// The CAS above already moved the object out of BORROWED, so it is
		// safe to invalidate directly without a further state check.
		p.invalidateLocked(po)

		return nil
	}

	po.markReturned()

	if p.cfg.IdleTimeout > 0 {
		po.scheduledEviction = scheduleEviction(idleEvictionDelay(p.cfg.IdleTimeout), func() { p.evict(po) })
	}

	p.pushIdle(po)
	p.stats.recordReturned()
	defaultMetrics.recordReturned(p.name)

	return nil
}

// evict is the eviction task body, submitted to the background worker pool
// when an object's idle timer fires. It re-validates everything under the
// pool's write lock, since the firing race may have been lost to a borrow
// that happened in between scheduling and firing.
func (p *ObjectPool[T]) evict(po *PooledObject[T]) {
	p.poolLock.Lock()
	defer p.poolLock.Unlock()

	if !po.IsValid() || po.IsBorrowed() || p.closed.Load() {
		return
	}

	if !isIdleTimeout(p.cfg.IdleTimeout, po.LastReturnedAt(), time.Now()) {
		return
	}

	p.invalidateLocked(po)
}

// invalidateLocked removes po from allObjects and disposes of it via
// Manager.Invalid, logging (and swallowing) any disposal failure: eviction
// and ordinary borrow/return paths are best-effort here, per the spec's
// propagation policy. The map removal is the single guard against
// double-destruction: only the caller that successfully deletes the entry
// invalidates it. Callers must already hold poolLock (either side).
func (p *ObjectPool[T]) invalidateLocked(po *PooledObject[T]) {
	should.Close(closer.HandlePanic(closer.CustomCloser(func() error {
		return p.invalidateLockedErr(po)
	})), "pool %q: failed to invalidate object", p.name)
}

// invalidateLockedErr is invalidateLocked's error-returning core, used
// directly by Close so it can aggregate every drain-time disposal failure
// into a single diagnostic instead of one log line per object.
func (p *ObjectPool[T]) invalidateLockedErr(po *PooledObject[T]) error {
	po.cancelEviction()

	p.objectsMu.Lock()
	if _, present := p.allObjects[po.Object()]; !present {
		p.objectsMu.Unlock()

		return nil
	}

	delete(p.allObjects, po.Object())
	p.objectsMu.Unlock()

	po.setState(StateInvalid)
	p.stats.recordInvalidated()
	defaultMetrics.recordInvalidated(p.name)

	return p.manager.Invalid(po)
}

// Close flips the closed flag, cancels pending eviction tasks, and drains
// and invalidates every currently idle object. It is idempotent: calling it
// more than once is a no-op after the first call. Borrowed objects are not
// forcibly reclaimed; they are invalidated when their holder eventually
// returns them. Close itself never fails: Manager.Invalid errors encountered
// while draining are aggregated and logged, never returned, matching the
// spec's "Close is idempotent and never raises" propagation rule.
func (p *ObjectPool[T]) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.poolLock.Lock()
	defer p.poolLock.Unlock()

	var errs poolerrors.Collection

	for {
		select {
		case po := <-p.idleRecv:
			errs.Add(p.invalidateLockedErr(po))
		default:
			if errs.HasError() {
				logger.Get().Warn("pool: errors invalidating objects during close",
					"pool", p.name, "error", errs.GetError())
			}

			return nil
		}
	}
}

// Stats returns a point-in-time snapshot of the pool's counters.
func (p *ObjectPool[T]) Stats() Stats {
	return p.stats.snapshot()
}

// debugSnapshot is the structure rendered by DebugInfo.
type debugSnapshot struct {
	Name    string `json:"name"`
	Closed  bool   `json:"closed"`
	IdleLen int    `json:"idleCount"`
	Config  Config `json:"config"`
	Stats   Stats  `json:"stats"`
}

// DebugInfo returns a pretty-printed snapshot of the pool's state, stats,
// configuration, and idle count.
func (p *ObjectPool[T]) DebugInfo() string {
	snap := debugSnapshot{
		Name:    p.name,
		Closed:  p.closed.Load(),
		IdleLen: p.idleLen(),
		Config:  p.cfg,
		Stats:   p.stats.snapshot(),
	}

	return debug.PrettyJSONString(snap)
}
