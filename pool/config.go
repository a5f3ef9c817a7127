package pool

import "time"

// Config configures an ObjectPool's capacity, blocking behavior, retry
// policy, and idle eviction. There are no environment-derived defaults:
// every field must be set explicitly by the embedding application.
type Config struct {
	// MaxPoolSize is the hard cap on live objects. Must be > 0.
	MaxPoolSize int

	// PollTimeout controls Borrow's blocking behavior when the pool is
	// saturated and no idle object is available:
	//   > 0: block up to this long, then fail with ErrPollTimeout.
	//   == 0: non-blocking; return the zero value and ok=false immediately.
	//   < 0: block indefinitely.
	PollTimeout time.Duration

	// CreateRetryCount is the number of extra attempts (beyond the first)
	// given to Manager.Create before Borrow fails with ErrCreateFailed.
	CreateRetryCount int

	// IdleTimeout controls eviction of objects sitting idle in the pool:
	//   < 0: never evict.
	//   == 0: evict immediately on return.
	//   > 0: evict once idle for at least this long.
	IdleTimeout time.Duration

	// ValidateOnBorrow, if true, runs Manager.Validate on a candidate object
	// before handing it to the borrower; a failing candidate is invalidated
	// and the acquire loop retries.
	ValidateOnBorrow bool

	// ValidateOnReturn, if true, runs Manager.Validate on a returned object
	// before re-pooling it; a failing object is invalidated instead.
	ValidateOnReturn bool

	// ScheduledThreadLifeTime is stored with the rest of the configuration
	// (and shows in DebugInfo output), but the pool does not read it:
	// eviction tasks run on the shared process-wide worker pool in package
	// bgworker, whose workers are not wound down or re-spawned according to
	// this value.
	ScheduledThreadLifeTime time.Duration
}

func (c Config) validated() Config {
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 1
	}

	if c.CreateRetryCount < 0 {
		c.CreateRetryCount = 0
	}

	return c
}
