// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package async implements the cooperative scheduler that backs async
// test bodies: a virtual clock, a deadline-ordered wake queue, and the
// await/wait_until/parallel_async suspension primitives described in
// spec §4.3. Only one task ever executes Go code at a time; suspension
// points hand a baton back to the scheduler's drive loop, which is the
// Go analogue of the teacher's single context.Context deadline,
// generalized from one timer to a priority queue of many.
package async

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/greggh/firmo/ferror"
)

// eventKind tags what a task did on its last turn.
type eventKind int

const (
	eventSuspend eventKind = iota
	eventWaitFor
	eventFinished
)

type taskEvent struct {
	kind     eventKind
	deadline time.Duration
	seq      uint64
	waitFor  []*taskState
	err      error
	result   any
}

// taskState is the scheduler's handle onto one running goroutine: the
// root test body, or a parallel_async child.
type taskState struct {
	id      uint64
	resume  chan struct{}
	events  chan taskEvent
	done    bool
	err     error
	result  any
}

// Task is the handle passed into an async test body; it is the only
// way application code may reach scheduler primitives.
type Task struct {
	sched *Scheduler
	self  *taskState
}

// Scheduler drives one async test's virtual clock and task set. A new
// Scheduler is created per test invocation; it is not reused across
// tests.
type Scheduler struct {
	now     time.Duration
	seq     uint64
	waiters waitHeap
	ready   []*taskState
	pending map[uint64]*parentWait // child id -> parent waiting on it

	// CancelOnFirstError, when true, makes ParallelAsync resume its
	// parent as soon as the first sibling error is observed instead of
	// waiting for every sibling to finish. Off by default; no config key
	// sets it, only a caller assigning the field (see DESIGN.md open
	// question).
	CancelOnFirstError bool
}

type parentWait struct {
	parent    *taskState
	remaining int
	cancelled bool
}

// NewScheduler constructs an empty Scheduler with its virtual clock at
// zero.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: map[uint64]*parentWait{}}
}

// Now returns the scheduler's current virtual time.
func (s *Scheduler) Now() time.Duration { return s.now }

func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// Run executes body as the root task to completion (or until timeout
// elapses on the virtual clock), returning body's error or a TIMEOUT
// ferror.Error.
func (s *Scheduler) Run(body func(*Task) error, timeout time.Duration) error {
	root := &taskState{id: s.nextSeq(), resume: make(chan struct{}), events: make(chan taskEvent, 1)}
	t := &Task{sched: s, self: root}

	go func() {
		<-root.resume
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic in async task: %v", r)
				}
			}()
			return body(t)
		}()
		root.events <- taskEvent{kind: eventFinished, err: err}
	}()

	s.ready = append(s.ready, root)
	return s.drive(root, timeout)
}

// drive is the scheduler's single-threaded event loop: it resumes
// exactly one ready task at a time and blocks until that task
// suspends or finishes before resuming the next, which is what gives
// firmo's async model its "only one task executes at a time" property.
func (s *Scheduler) drive(root *taskState, timeout time.Duration) error {
	for {
		if len(s.ready) == 0 {
			if s.waiters.Len() == 0 {
				if root.done {
					return root.err
				}
				return ferror.New(ferror.Context, "async scheduler stalled: no ready tasks and no pending waiters")
			}
			next := heap.Pop(&s.waiters).(*waitEntry)
			if timeout > 0 && next.deadline > timeout {
				return ferror.New(ferror.Timeout, fmt.Sprintf("async test exceeded timeout of %s", timeout))
			}
			s.now = next.deadline
			s.ready = append(s.ready, next.task)
			for s.waiters.Len() > 0 && s.waiters[0].deadline == s.now {
				e := heap.Pop(&s.waiters).(*waitEntry)
				s.ready = append(s.ready, e.task)
			}
		}

		current := s.ready[0]
		s.ready = s.ready[1:]
		current.resume <- struct{}{}
		ev := <-current.events

		switch ev.kind {
		case eventSuspend:
			heap.Push(&s.waiters, &waitEntry{deadline: ev.deadline, seq: ev.seq, task: current})
		case eventWaitFor:
			pw := &parentWait{parent: current, remaining: len(ev.waitFor)}
			if pw.remaining == 0 {
				s.ready = append(s.ready, current)
				continue
			}
			for _, child := range ev.waitFor {
				s.pending[child.id] = pw
			}
		case eventFinished:
			current.done = true
			current.err = ev.err
			current.result = ev.result
			if current == root {
				return ev.err
			}
			if pw, ok := s.pending[current.id]; ok {
				delete(s.pending, current.id)
				pw.remaining--
				if s.CancelOnFirstError && ev.err != nil && !pw.cancelled {
					pw.cancelled = true
					s.ready = append(s.ready, pw.parent)
				} else if pw.remaining == 0 && !pw.cancelled {
					s.ready = append(s.ready, pw.parent)
				}
			}
		}
	}
}

// spawn registers fn as a new child task, ready to run on its own
// turn, and returns its handle for parallel_async to wait on.
func (s *Scheduler) spawn(fn func(*Task) (any, error)) *taskState {
	child := &taskState{id: s.nextSeq(), resume: make(chan struct{}), events: make(chan taskEvent, 1)}
	childTask := &Task{sched: s, self: child}
	go func() {
		<-child.resume
		result, err := func() (res any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic in async task: %v", r)
				}
			}()
			return fn(childTask)
		}()
		child.events <- taskEvent{kind: eventFinished, err: err, result: result}
	}()
	s.ready = append(s.ready, child)
	return child
}
