package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsTask(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("exec-1/retry/step", time.Millisecond, func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, s.Pending())
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("exec-1/retry/step", 20*time.Millisecond, func() { fired.Add(1) })
	s.Cancel("exec-1/retry/step")

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.Zero(t, s.Pending())
}

func TestSchedulerReplacesKey(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("exec-1/retry/step", 10*time.Millisecond, func() { first.Add(1) })
	s.Schedule("exec-1/retry/step", 10*time.Millisecond, func() { second.Add(1) })

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, first.Load())
}

func TestSchedulerReplaceNeverDropsReplacement(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	// zero-delay predecessors fire while being replaced; a stale callback
	// must not claim the slot of the task that superseded it
	for i := 0; i < 100; i++ {
		s.Schedule("exec-1/retry/step", 0, func() {})
	}
	var last atomic.Int32
	s.Schedule("exec-1/retry/step", time.Millisecond, func() { last.Add(1) })

	assert.Eventually(t, func() bool { return last.Load() == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, s.Pending())
}

func TestSchedulerCancelExecution(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired, other atomic.Int32
	s.Schedule("exec-1/retry/a", 20*time.Millisecond, func() { fired.Add(1) })
	s.Schedule("exec-1/deadline/b", 20*time.Millisecond, func() { fired.Add(1) })
	s.Schedule("exec-2/retry/a", 20*time.Millisecond, func() { other.Add(1) })

	s.CancelExecution("exec-1")

	assert.Eventually(t, func() bool { return other.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestSchedulerStop(t *testing.T) {
	s := NewScheduler()

	var fired atomic.Int32
	s.Schedule("exec-1/retry/a", 20*time.Millisecond, func() { fired.Add(1) })
	s.Stop()

	// stopped schedulers refuse new tasks
	s.Schedule("exec-1/retry/b", time.Millisecond, func() { fired.Add(1) })

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.Zero(t, s.Pending())
}
