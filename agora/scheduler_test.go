package agora

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerAfterFires(t *testing.T) {
	t.Parallel()
	s := NewScheduler(testLogger(t))
	t.Cleanup(s.Stop)

	fired := make(chan struct{})
	s.After(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task never fired")
	}
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerCancelPreventsFire(t *testing.T) {
	t.Parallel()
	s := NewScheduler(testLogger(t))
	t.Cleanup(s.Stop)

	var fired atomic.Bool
	task := s.After(50*time.Millisecond, func() { fired.Store(true) })
	require.Equal(t, 1, s.Pending())

	task.Cancel()
	assert.Equal(t, 0, s.Pending())

	// well past the original instant
	time.Sleep(150 * time.Millisecond)
	assert.False(t, fired.Load(), "canceled task must never fire")
}

func TestSchedulerCancelIdempotent(t *testing.T) {
	t.Parallel()
	s := NewScheduler(testLogger(t))
	t.Cleanup(s.Stop)

	task := s.After(time.Hour, func() {})
	task.Cancel()
	task.Cancel()
	assert.Equal(t, 0, s.Pending())

	// nil-safe for never-armed handles
	var zero *Task
	zero.Cancel()
	(&Task{}).Cancel()
}

func TestSchedulerAtPastInstantFiresImmediately(t *testing.T) {
	t.Parallel()
	s := NewScheduler(testLogger(t))
	t.Cleanup(s.Stop)

	fired := make(chan struct{})
	s.At(time.Now().Add(-time.Minute), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("past-instant task never fired")
	}
}

func TestSchedulerStopCancelsPending(t *testing.T) {
	t.Parallel()
	s := NewScheduler(testLogger(t))

	var fired atomic.Bool
	s.After(50*time.Millisecond, func() { fired.Store(true) })
	s.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, fired.Load())

	// scheduling after stop is a no-op rather than a panic
	task := s.After(time.Millisecond, func() { fired.Store(true) })
	task.Cancel()
	s.Stop()
}
