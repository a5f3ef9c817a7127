package pool

import (
	"time"

	"go.uber.org/atomic"
)

// State is the lifecycle state of a PooledObject.
type State int

const (
	// StateNew is the state of an object immediately after creation, before
	// its first borrow.
	StateNew State = iota
	// StateBorrowed means the object is currently checked out to a caller.
	StateBorrowed
	// StateReturned means the object is idle, sitting on the idle deque.
	StateReturned
	// StateInvalid is terminal: the object has been destroyed and removed
	// from the pool's bookkeeping.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateBorrowed:
		return "BORROWED"
	case StateReturned:
		return "RETURNED"
	case StateInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// returner is the narrow capability a PooledObject needs from its owning
// pool to support the scoped-acquisition Close() convenience. It is a
// non-owning back-reference: the pool owns the PooledObject, not vice versa.
type returner[T comparable] interface {
	Return(obj T) error
}

// PooledObject wraps a user-supplied resource with lifecycle bookkeeping:
// its state, borrow/return timestamps, and a handle to its pending eviction
// task (if any). The pool looks objects up by the wrapped T value itself: for
// pointer types that is the resource's address, so two distinct resources are
// distinct pool members even when their fields are equal, while two equal T
// values map to the same entry.
type PooledObject[T comparable] struct {
	// debugID is a process-unique identifier minted at creation time, used
	// only for logs and DebugInfo. It is not the pool's identity key: the
	// map in allObjects is keyed by the object value itself (comparable T,
	// typically a pointer), never by hashing a derived identifier.
	debugID string

	object T

	mu             atomic.Uint32 // State, stored atomically for lock-free reads
	createdAt      time.Time
	lastBorrowedAt atomic.Time
	lastReturnedAt atomic.Time

	// scheduledEviction is the cancel handle for this object's pending
	// idle-timeout task, or nil if none is scheduled. Guarded by the pool's
	// poolLock: Return/Close/the eviction task itself may all touch it.
	scheduledEviction *evictionTask

	pool returner[T] // non-owning back-reference, used only by Close()
}

func newPooledObject[T comparable](debugID string, object T, pool returner[T]) *PooledObject[T] {
	po := &PooledObject[T]{
		debugID:   debugID,
		object:    object,
		createdAt: time.Now(),
		pool:      pool,
	}
	po.mu.Store(uint32(StateNew))

	return po
}

// DebugID returns the object's process-unique debug identifier.
func (p *PooledObject[T]) DebugID() string {
	return p.debugID
}

// Object returns the wrapped user resource.
func (p *PooledObject[T]) Object() T {
	return p.object
}

// State returns the object's current lifecycle state.
func (p *PooledObject[T]) State() State {
	return State(p.mu.Load()) //nolint:gosec
}

func (p *PooledObject[T]) setState(s State) {
	p.mu.Store(uint32(s))
}

// IsValid reports whether the object has not yet been invalidated.
func (p *PooledObject[T]) IsValid() bool {
	return p.State() != StateInvalid
}

// IsBorrowed reports whether the object is currently checked out.
func (p *PooledObject[T]) IsBorrowed() bool {
	return p.State() == StateBorrowed
}

// CreatedAt returns the time the object was created.
func (p *PooledObject[T]) CreatedAt() time.Time {
	return p.createdAt
}

// LastBorrowedAt returns the time of the object's most recent borrow, or the
// zero Time if it has never been borrowed.
func (p *PooledObject[T]) LastBorrowedAt() time.Time {
	return p.lastBorrowedAt.Load()
}

// LastReturnedAt returns the time of the object's most recent return, or the
// zero Time if it has never been returned.
func (p *PooledObject[T]) LastReturnedAt() time.Time {
	return p.lastReturnedAt.Load()
}

func (p *PooledObject[T]) markBorrowed() {
	p.setState(StateBorrowed)
	p.lastBorrowedAt.Store(time.Now())
}

func (p *PooledObject[T]) markReturned() {
	p.setState(StateReturned)
	p.lastReturnedAt.Store(time.Now())
}

// compareAndSwapState atomically transitions the object's state from "from"
// to "to", returning false if the current state was not "from". Used to
// arbitrate races: only one of several concurrent callers observing the same
// prior state wins the transition (e.g. two Returns of the same object).
func (p *PooledObject[T]) compareAndSwapState(from, to State) bool {
	return p.mu.CompareAndSwap(uint32(from), uint32(to))
}

// cancelEviction cancels and clears any pending eviction task. It must only
// be called by whichever goroutine currently "owns" the object, i.e. just
// won a state transition away from it, or holds the pool's write lock.
func (p *PooledObject[T]) cancelEviction() {
	if p.scheduledEviction != nil {
		p.scheduledEviction.cancel()
		p.scheduledEviction = nil
	}
}

// Close returns this object to its owning pool. It implements a "scoped
// acquisition, guaranteed release" pattern:
//
//	po, ok, err := p.BorrowObject()
//	...
//	defer po.Close()
//
// Close returns whatever Return returns: nil when the object is re-pooled or
// invalidated (including when the pool is closed), ErrDoubleReturn if the
// object is not currently borrowed, and ErrNotInPool once it has been
// invalidated.
func (p *PooledObject[T]) Close() error {
	if p.pool == nil {
		return nil
	}

	return p.pool.Return(p.object)
}
