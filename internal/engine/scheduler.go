package engine

import (
	"strings"
	"sync"
	"time"
)

// Scheduler runs delayed tasks with explicit cancellation. Each task is keyed
// by "<executionID>/<name>"; finalizing an execution cancels every pending
// task under its prefix so no timer fires against a finished execution.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*scheduledTask
	gen     uint64
	stopped bool
}

// scheduledTask pairs a timer with its generation. The generation lets claim
// tell a live task apart from a predecessor under the same key that fired
// while being replaced.
type scheduledTask struct {
	timer *time.Timer
	gen   uint64
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[string]*scheduledTask)}
}

// Schedule runs fn after delay under the given key. An existing task with the
// same key is replaced.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if task, ok := s.tasks[key]; ok {
		task.timer.Stop()
	}
	s.gen++
	gen := s.gen
	task := &scheduledTask{gen: gen}
	task.timer = time.AfterFunc(delay, func() {
		if !s.claim(key, gen) {
			return
		}
		fn()
	})
	s.tasks[key] = task
}

// claim removes the key if it still belongs to the given generation and
// reports whether the task may run. A task cancelled or replaced between
// firing and claiming must not run.
func (s *Scheduler) claim(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	task, ok := s.tasks[key]
	if !ok || task.gen != gen {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Cancel stops the task with the given key, if pending.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[key]; ok {
		task.timer.Stop()
		delete(s.tasks, key)
	}
}

// CancelExecution stops all pending tasks for an execution id.
func (s *Scheduler) CancelExecution(executionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := executionID + "/"
	for key, task := range s.tasks {
		if strings.HasPrefix(key, prefix) {
			task.timer.Stop()
			delete(s.tasks, key)
		}
	}
}

// Pending returns the number of scheduled tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels everything and refuses new tasks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, task := range s.tasks {
		task.timer.Stop()
		delete(s.tasks, key)
	}
}

func retryKey(executionID, stepID string) string {
	return executionID + "/retry/" + stepID
}

func deadlineKey(executionID, stepID string) string {
	return executionID + "/deadline/" + stepID
}
