// Package bgworker provides a shared background worker pool with graceful
// lifecycle control, used to run short-lived tasks (such as idle-object
// eviction) off the caller's goroutine.
package bgworker

import (
	"log/slog"
	"sync"

	"github.com/alitto/pond/v2"

	"github.com/amp-labs/objectpool/shutdown"
)

const defaultWorkerCount = 10

var (
	once       sync.Once   //nolint:gochecknoglobals
	workerPool pond.Pool   //nolint:gochecknoglobals
)

func get() pond.Pool { //nolint:ireturn
	once.Do(func() {
		slog.Debug("initializing background worker pool", "count", defaultWorkerCount)

		workerPool = pond.NewPool(defaultWorkerCount)

		shutdown.BeforeShutdown(func() {
			slog.Debug("stopping background worker pool")
			workerPool.StopAndWait()
			slog.Debug("background worker pool stopped")
		})
	})

	return workerPool
}

// Submit submits a function to the shared background worker pool.
// It returns a Task that can be used to wait for the function to complete.
func Submit(f func()) pond.Task { //nolint:ireturn
	return get().Submit(f)
}

// Go submits a function to the shared background worker pool and returns
// immediately. It returns an error if the pool has been stopped.
func Go(f func()) error {
	return get().Go(f)
}
