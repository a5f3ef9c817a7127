// Package channels provides utilities for working with Go channels,
// including channel creation with flexible sizing and safe channel closing.
package channels

// Create creates a buffered channel of the given capacity and returns a
// send-only channel, a receive-only channel, and a function to get the
// current queue length.
//
// Returns:
//   - chan<- T: send-only channel for writing values
//   - <-chan T: receive-only channel for reading values
//   - func() int: function that returns the current number of items in the channel
func Create[T any](size int) (chan<- T, <-chan T, func() int) {
	c := make(chan T, size)

	return c, c, func() int {
		return len(c)
	}
}

// CloseChannelIgnorePanic closes a channel like normal.
// However, if the channel has already been closed,
// it will suppress the resulting panic.
func CloseChannelIgnorePanic[T any](ch chan<- T) {
	if ch == nil {
		return
	}

	defer func() {
		// Recover from panic if the channel is already closed
		_ = recover()
	}()

	close(ch)
}
