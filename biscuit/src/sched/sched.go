// Package sched implements the round-robin preemptive scheduler: a single run queue rotated by Schedule, a Tick that reports when the current task's Quantum of timer ticks is used up, zombie
// reaping, and IRQ-masked mutation of scheduling state. Grounded on
// original_source/proc/TaskScheduler.cc (enqueue/remove/schedule/
// reap_zombies) with the single-core run queue kept as a slice rather
// than an intrusive list.
package sched

import (
	"sync"

	"proc"
)

// Quantum is the number of timer ticks a task runs before the
// scheduler rotates the run queue.
const Quantum = 10

// Sched_t owns the run queue and the current task pointer. There is
// exactly one instance per kernel, mirroring
// TaskScheduler::get_instance()'s singleton.
type Sched_t struct {
	mu       sync.Mutex
	runq     []*proc.Task_t
	zombies  []*proc.Task_t
	cur      int // index into runq of the running task
	ticksLeft int
}

// New returns an empty scheduler; tasks must be enqueued before Run is
// called.
func New() *Sched_t {
	return &Sched_t{ticksLeft: Quantum}
}

// Enqueue adds task to the tail of the run queue in state RUNNABLE.
func (s *Sched_t) Enqueue(task *proc.Task_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.State = proc.RUNNABLE
	s.runq = append(s.runq, task)
}

// Remove deletes task from the run queue, wherever it currently sits.
// Used both for zombie reaping and for tasks entering WAITING.
func (s *Sched_t) Remove(task *proc.Task_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s._remove(task)
}

func (s *Sched_t) _remove(task *proc.Task_t) {
	for i, t := range s.runq {
		if t == task {
			s.runq = append(s.runq[:i], s.runq[i+1:]...)
			if s.cur > i {
				s.cur--
			} else if s.cur >= len(s.runq) && len(s.runq) > 0 {
				s.cur = 0
			}
			return
		}
	}
}

// Current returns the task presently selected to run, or nil if the
// run queue is empty.
func (s *Sched_t) Current() *proc.Task_t {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runq) == 0 {
		return nil
	}
	return s.runq[s.cur]
}

// Schedule rotates the run queue to the next RUNNABLE task and returns
// the (previous, next) pair so the trap dispatcher can invoke the
// context-switch stub. Returns
// next == nil if there is nothing left to run.
func (s *Sched_t) Schedule() (prev, next *proc.Task_t) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.runq) == 0 {
		return nil, nil
	}
	prev = s.runq[s.cur]
	for i := 1; i <= len(s.runq); i++ {
		j := (s.cur + i) % len(s.runq)
		if s.runq[j].State == proc.RUNNABLE {
			s.cur = j
			s.ticksLeft = Quantum
			return prev, s.runq[j]
		}
	}
	return prev, nil
}

// Tick charges one timer tick to the current task's quantum and reports whether the
// quantum has been exhausted and a reschedule is due.
func (s *Sched_t) Tick() (needReschedule bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runq) == 0 {
		return false
	}
	s.runq[s.cur].Accnt.Tick()
	s.ticksLeft--
	if s.ticksLeft <= 0 {
		s.ticksLeft = Quantum
		return true
	}
	return false
}

// ReapZombies removes every TERMINATED task from the run queue and
// returns them, grounded on TaskScheduler::reap_zombies's
// "drain _zombies, remove each from the run queue" loop.
func (s *Sched_t) ReapZombies() []*proc.Task_t {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reaped []*proc.Task_t
	var alive []*proc.Task_t
	for _, t := range s.runq {
		if t.State == proc.TERMINATED {
			reaped = append(reaped, t)
		} else {
			alive = append(alive, t)
		}
	}
	s.runq = alive
	if s.cur >= len(s.runq) {
		s.cur = 0
	}
	return reaped
}

// Len reports the number of tasks currently queued, runnable or
// waiting for reaping.
func (s *Sched_t) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runq)
}

// Snapshot returns a copy of the current run queue, used by procfs to
// render /proc/<pid> directories without holding the scheduler lock
// across a filesystem read.
func (s *Sched_t) Snapshot() []*proc.Task_t {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*proc.Task_t, len(s.runq))
	copy(out, s.runq)
	return out
}
