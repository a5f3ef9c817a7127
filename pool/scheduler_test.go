package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsIdleTimeout(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name        string
		idleTimeout time.Duration
		lastReturn  time.Time
		want        bool
	}{
		{"never evict when negative", -1, now.Add(-time.Hour), false},
		{"immediate eviction when zero", 0, time.Time{}, true},
		{"not yet idle long enough", 200 * time.Millisecond, now.Add(-50 * time.Millisecond), false},
		{"idle long enough", 200 * time.Millisecond, now.Add(-300 * time.Millisecond), true},
		{"never returned, positive timeout", 200 * time.Millisecond, time.Time{}, false},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := isIdleTimeout(tt.idleTimeout, tt.lastReturn, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleEviction_CancelPreventsRun(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)

	task := scheduleEviction(20*time.Millisecond, func() {
		ran <- struct{}{}
	})
	task.cancel()

	select {
	case <-ran:
		t.Fatal("eviction task ran after cancellation")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestScheduleEviction_FiresAfterDelay(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)

	scheduleEviction(10*time.Millisecond, func() {
		ran <- struct{}{}
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("eviction task did not run")
	}
}
