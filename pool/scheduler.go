package pool

import (
	"time"

	"github.com/amp-labs/objectpool/bgworker"
)

// evictionSlack is added on top of idleTimeout when scheduling an eviction
// task, so that when the task fires it always observes lastReturnedAt as
// already elapsed rather than racing it.
const evictionSlack = 100 * time.Millisecond

// evictionTask is the cancellable handle for a single pooled object's
// pending idle-timeout check. The pool stores one on each PooledObject
// while it sits in the idle deque; Return and invalidation both cancel it
// before replacing or discarding it.
type evictionTask struct {
	timer *time.Timer
}

// scheduleEviction arms a timer that, after delay, submits run to the shared
// background worker pool. The timer itself is daemon-style: it never blocks
// process exit. The eviction checks run on the shared bgworker pool, not on a
// single dedicated worker; evictions of different objects may run on
// different workers.
func scheduleEviction(delay time.Duration, run func()) *evictionTask {
	t := time.AfterFunc(delay, func() {
		// Submit rather than run inline: the timer goroutine should never
		// block on pool locks or on Manager.invalid.
		if err := bgworker.Go(run); err != nil {
			// Worker pool already stopped (process shutting down); run
			// the eviction check inline rather than dropping it.
			run()
		}
	})

	return &evictionTask{timer: t}
}

// cancel stops the pending timer. It is safe to call more than once and
// safe to call after the timer has already fired: the eviction task body
// double-checks object state under the pool's write lock, so a task that
// slips past cancellation is a harmless no-op.
func (e *evictionTask) cancel() {
	if e == nil || e.timer == nil {
		return
	}

	e.timer.Stop()
}

// idleEvictionDelay computes the delay before an eviction task fires for an
// object that was just returned, per the configured idleTimeout. Callers
// must not schedule an eviction task at all when idleTimeout < 0 (never
// evict); this function is only meaningful for idleTimeout >= 0.
func idleEvictionDelay(idleTimeout time.Duration) time.Duration {
	if idleTimeout < 0 {
		return 0
	}

	return idleTimeout + evictionSlack
}

// isIdleTimeout reports whether a pooled object, last returned at
// lastReturnedAt, has been idle for at least idleTimeout as of now.
//
//   - idleTimeout == 0: always true (evict immediately on return).
//   - idleTimeout > 0: true once now - lastReturnedAt >= idleTimeout, and
//     only if the object has actually been returned at least once.
//   - idleTimeout < 0: never true (eviction is disabled).
func isIdleTimeout(idleTimeout time.Duration, lastReturnedAt time.Time, now time.Time) bool {
	if idleTimeout < 0 {
		return false
	}

	if idleTimeout == 0 {
		return true
	}

	if lastReturnedAt.IsZero() {
		return false
	}

	return now.Sub(lastReturnedAt) >= idleTimeout
}
