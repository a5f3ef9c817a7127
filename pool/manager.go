package pool

// Manager is the external capability an ObjectPool consumes to create,
// validate, and destroy the underlying resources it pools. The pool owns
// orchestration (capacity, borrow/return state, eviction); Manager owns the
// resource's actual lifecycle, e.g. opening and closing a database
// connection.
type Manager[T any] interface {
	// Create builds a new underlying resource. Called under the pool's
	// create lock, which serializes creators: a slow Create is held against
	// every other borrower racing for a creation slot, so implementations
	// should treat this as the one place the pool assumes "fast enough to
	// serialize".
	Create() (T, error)

	// Validate performs a cheap liveness check on a pooled object. A false
	// return (or an error) is treated identically: the object is invalidated.
	Validate(obj *PooledObject[T]) (bool, error)

	// Invalid disposes of an underlying resource that is leaving the pool
	// for good, whether via eviction, failed validation, or Close.
	Invalid(obj *PooledObject[T]) error
}
