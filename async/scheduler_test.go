// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package async

import (
	"errors"
	"testing"
	"time"

	"github.com/greggh/firmo/ferror"
)

func TestAwaitAdvancesVirtualClockMonotonically(t *testing.T) {
	s := NewScheduler()
	var seen []time.Duration
	err := s.Run(func(tk *Task) error {
		seen = append(seen, tk.sched.Now())
		if err := tk.Await(50); err != nil {
			return err
		}
		seen = append(seen, tk.sched.Now())
		if err := tk.Await(10); err != nil {
			return err
		}
		seen = append(seen, tk.sched.Now())
		return nil
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Duration{0, 50 * time.Millisecond, 60 * time.Millisecond}
	if len(seen) != len(want) {
		t.Fatalf("expected %d ticks, got %d: %v", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("tick %d: want %v, got %v", i, want[i], seen[i])
		}
		if i > 0 && seen[i] < seen[i-1] {
			t.Fatalf("virtual clock decreased: %v -> %v", seen[i-1], seen[i])
		}
	}
}

func TestAwaitTimesOutPastDeadline(t *testing.T) {
	s := NewScheduler()
	err := s.Run(func(tk *Task) error {
		return tk.Await(5000)
	}, 100*time.Millisecond)
	if !ferror.Is(err, ferror.Timeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
}

func TestWaitUntilResolvesWhenPredicateBecomesTrue(t *testing.T) {
	s := NewScheduler()
	ticks := 0
	err := s.Run(func(tk *Task) error {
		pred := func() bool {
			ticks++
			return ticks >= 3
		}
		return tk.WaitUntil(pred, 1000, 10)
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticks < 3 {
		t.Fatalf("expected predicate polled at least 3 times, got %d", ticks)
	}
}

func TestWaitUntilTimesOutWhenPredicateNeverTrue(t *testing.T) {
	s := NewScheduler()
	err := s.Run(func(tk *Task) error {
		return tk.WaitUntil(func() bool { return false }, 50, 10)
	}, 0)
	if !ferror.Is(err, ferror.Timeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
}

func TestWaitUntilEPropagatesPredicateErrorAsAssertion(t *testing.T) {
	s := NewScheduler()
	boom := errors.New("boom")
	err := s.Run(func(tk *Task) error {
		return tk.WaitUntilE(func() (bool, error) { return false, boom }, 1000, 10)
	}, 0)
	if !ferror.Is(err, ferror.Assertion) {
		t.Fatalf("expected ASSERTION, got %v", err)
	}
}

func TestParallelAsyncPreservesInputOrderRegardlessOfCompletionOrder(t *testing.T) {
	s := NewScheduler()
	var order []int
	var results []any
	err := s.Run(func(tk *Task) error {
		tasks := []ParallelAsyncTask{
			func(c *Task) (any, error) {
				if err := c.Await(30); err != nil {
					return nil, err
				}
				order = append(order, 0)
				return "slow", nil
			},
			func(c *Task) (any, error) {
				if err := c.Await(5); err != nil {
					return nil, err
				}
				order = append(order, 1)
				return "fast", nil
			},
		}
		r, err := tk.ParallelAsync(tasks)
		results = r
		return err
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 0 {
		t.Fatalf("expected fast task (index 1) to complete first, got completion order %v", order)
	}
	if len(results) != 2 || results[0] != "slow" || results[1] != "fast" {
		t.Fatalf("expected results in input order [slow, fast], got %v", results)
	}
}

func TestParallelAsyncAggregatesMultipleErrors(t *testing.T) {
	s := NewScheduler()
	err := s.Run(func(tk *Task) error {
		tasks := []ParallelAsyncTask{
			func(c *Task) (any, error) { return nil, ferror.New(ferror.Execution, "first failure") },
			func(c *Task) (any, error) { return nil, ferror.New(ferror.Execution, "second failure") },
		}
		_, err := tk.ParallelAsync(tasks)
		return err
	}, 0)
	if !ferror.Is(err, ferror.Execution) {
		t.Fatalf("expected EXECUTION category, got %v", err)
	}
}

func TestTasksWokenAtSameTickRunInInsertionOrder(t *testing.T) {
	s := NewScheduler()
	var order []int
	err := s.Run(func(tk *Task) error {
		tasks := []ParallelAsyncTask{
			func(c *Task) (any, error) {
				if err := c.Await(10); err != nil {
					return nil, err
				}
				order = append(order, 0)
				return nil, nil
			},
			func(c *Task) (any, error) {
				if err := c.Await(10); err != nil {
					return nil, err
				}
				order = append(order, 1)
				return nil, nil
			},
			func(c *Task) (any, error) {
				if err := c.Await(10); err != nil {
					return nil, err
				}
				order = append(order, 2)
				return nil, nil
			},
		}
		_, err := tk.ParallelAsync(tasks)
		return err
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("expected insertion order [0 1 2] for equal-deadline wakeups, got %v", order)
	}
}

func TestAwaitZeroStillYieldsOneTick(t *testing.T) {
	s := NewScheduler()
	yielded := false
	err := s.Run(func(tk *Task) error {
		if err := tk.Await(0); err != nil {
			return err
		}
		yielded = true
		return nil
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !yielded {
		t.Fatalf("expected await(0) to still suspend and resume the task")
	}
}
