// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package async

import (
	"fmt"
	"time"

	"github.com/greggh/firmo/ferror"
)

// Await suspends the current task until ms virtual milliseconds have
// elapsed, yielding control back to the scheduler. Calling Await with
// ms == 0 still yields one tick, matching spec §4.3's "a zero-delay
// await still surrenders control once".
func (t *Task) Await(ms int) error {
	if ms < 0 {
		return ferror.New(ferror.Validation, "await: ms must be non-negative")
	}
	deadline := t.sched.now + time.Duration(ms)*time.Millisecond
	seq := t.sched.nextSeq()
	t.self.events <- taskEvent{kind: eventSuspend, deadline: deadline, seq: seq}
	<-t.self.resume
	return nil
}

// WaitUntil polls pred every intervalMS (virtual time) until it
// returns true or timeoutMS elapses, in which case a TIMEOUT
// ferror.Error is returned.
func (t *Task) WaitUntil(pred func() bool, timeoutMS, intervalMS int) error {
	return t.WaitUntilE(func() (bool, error) { return pred(), nil }, timeoutMS, intervalMS)
}

// WaitUntilE is WaitUntil for a predicate that can itself fail. A
// non-nil predicate error aborts the poll immediately and is wrapped
// as an ASSERTION ferror.Error, per spec §4.3 ("predicate errors
// propagate as ASSERTION errors").
func (t *Task) WaitUntilE(pred func() (bool, error), timeoutMS, intervalMS int) error {
	if intervalMS <= 0 {
		intervalMS = 1
	}
	deadline := t.sched.now + time.Duration(timeoutMS)*time.Millisecond
	for {
		ok, err := pred()
		if err != nil {
			return ferror.Wrap(ferror.Assertion, err, "wait_until: predicate failed")
		}
		if ok {
			return nil
		}
		if t.sched.now >= deadline {
			return ferror.New(ferror.Timeout, fmt.Sprintf("wait_until: condition not met within %dms", timeoutMS))
		}
		if err := t.Await(intervalMS); err != nil {
			return err
		}
	}
}

// ParallelAsyncTask is one unit of work submitted to ParallelAsync.
type ParallelAsyncTask func(*Task) (any, error)

// ParallelAsync spawns each task as a sibling and suspends the
// calling task until all of them have completed, returning their
// results in the same order as the input slice (spec §8: "results
// preserve input order regardless of completion order"). A single
// failure is returned as is; when several tasks fail, an EXECUTION
// error is returned with every failure under its "errors" context key.
// With Scheduler.CancelOnFirstError set, the caller resumes as soon as
// one task fails: the results and errors cover only the tasks finished
// by then, and the remaining tasks are not stopped.
func (t *Task) ParallelAsync(tasks []ParallelAsyncTask) ([]any, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	children := make([]*taskState, len(tasks))
	for i, fn := range tasks {
		children[i] = t.sched.spawn(fn)
	}

	t.self.events <- taskEvent{kind: eventWaitFor, waitFor: children}
	<-t.self.resume

	results := make([]any, len(children))
	var errs []error
	for i, c := range children {
		results[i] = c.result
		if c.err != nil {
			errs = append(errs, c.err)
		}
	}
	if len(errs) == 0 {
		return results, nil
	}
	if len(errs) == 1 {
		return results, errs[0]
	}
	msg := fmt.Sprintf("%d of %d parallel tasks failed: %v", len(errs), len(tasks), errs[0])
	return results, ferror.New(ferror.Execution, msg).WithContext("errors", errs)
}
