package pool

import "errors"

// Sentinel errors returned by ObjectPool operations. Wrap with fmt.Errorf
// and %w, or compare with errors.Is.
var (
	// ErrPoolClosed is returned by Borrow when the pool has already been closed.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrCreateFailed is returned by Borrow when Manager.Create failed on every
	// attempt, including retries.
	ErrCreateFailed = errors.New("pool: object creation failed")

	// ErrPollTimeout is returned by Borrow when PollTimeout elapsed with no
	// idle object becoming available and the pool was at capacity.
	ErrPollTimeout = errors.New("pool: timed out waiting for an object")

	// ErrNotInPool is returned by Return when the given object's identity is
	// not known to the pool (never created by it, or already invalidated).
	ErrNotInPool = errors.New("pool: object is not managed by this pool")

	// ErrDoubleReturn is returned by Return when the object is not currently
	// in the BORROWED state.
	ErrDoubleReturn = errors.New("pool: object is not currently borrowed")
)
