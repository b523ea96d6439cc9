// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package runner executes a file's registered Block tree and produces
// Result/FileResult values, following the per-file protocol from spec
// §4.5: reset the registry, evaluate the file, resolve the focus/skip
// plan, run each test's before_each/body/after_each chain, and restore
// every mock before moving to the next test. It is the direct Go
// rendering of the teacher's tester.Runner.
package runner

import (
	"fmt"
	"time"

	"github.com/greggh/firmo/async"
	"github.com/greggh/firmo/ferror"
	"github.com/greggh/firmo/mock"
	"github.com/greggh/firmo/registry"
)

// Status is a test's terminal disposition.
type Status string

const (
	Pass    Status = "pass"
	Fail    Status = "fail"
	Skip    Status = "skip"
	Error   Status = "error"   // structural failure: a describe body panicked before this test could run
	Pending Status = "pending" // registered with a nil body
)

// Result is one test leaf's outcome, the Go rendering of spec's
// TestResult.
type Result struct {
	Path       registry.Path
	Name       string
	Status     Status
	Duration   time.Duration
	Err        error
	SkipReason string
	Tags       []string

	// MockLeaked reports whether any mock was still active immediately
	// before teardown restored it, feeding the quality module's LEAK
	// issue (spec §4.4, §4.7).
	MockLeaked bool
}

// Passed reports whether this result counts as a pass.
func (r *Result) Passed() bool { return r.Status == Pass }

func (r *Result) String() string {
	if r.Status == Skip {
		return fmt.Sprintf("%s: SKIP (%s)", r.Path, r.SkipReason)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Path, r.Status, r.Duration)
}

// FileResult aggregates every test result produced while running one
// file, the Go rendering of spec's FileResult.
type FileResult struct {
	File     string
	Results  []*Result
	Duration time.Duration
	LoadErr  error
}

// Success reports whether the file loaded without a structural error
// and no test within it failed or errored.
func (f *FileResult) Success() bool {
	if f.LoadErr != nil {
		return false
	}
	for _, r := range f.Results {
		if r.Status == Fail || r.Status == Error {
			return false
		}
	}
	return true
}

// Counts returns the number of passed, failed, skipped, errored, and
// pending results.
func (f *FileResult) Counts() (passed, failed, skipped, errored, pending int) {
	for _, r := range f.Results {
		switch r.Status {
		case Pass:
			passed++
		case Fail:
			failed++
		case Skip:
			skipped++
		case Error:
			errored++
		case Pending:
			pending++
		}
	}
	return
}

// Instrumentation lets the coverage and quality modules observe test
// boundaries without the runner importing either package directly.
type Instrumentation interface {
	StartTest(path string)
	StopTest(path string, result *Result)
}

// Loader populates the registry for exactly one file by calling
// registry.Describe/It. RunFile resets the registry before calling it,
// so registrations made outside a Loader (for example from a package
// init) are discarded; the orchestrator keeps one Loader per file in
// orchestrator.FileLoaders.
type Loader func() error

// Runner drives one file's test tree to completion.
type Runner struct {
	// Registry is the tree RunFile resets and reads. Defaults to
	// registry.Default when nil.
	Registry *registry.Registry

	// Timeout is the default per-test timeout applied when a test was
	// not registered with its own WithTimeout option. Zero means no
	// timeout.
	Timeout time.Duration

	// Filter narrows which tests in the plan actually execute.
	Filter registry.Filter

	// Instrumentation, if set, is notified around every test body.
	Instrumentation Instrumentation
}

// New returns a Runner with no default timeout, reading/writing the
// package-level registry.Default.
func New() *Runner {
	return &Runner{}
}

func (r *Runner) registry() *registry.Registry {
	if r.Registry != nil {
		return r.Registry
	}
	return registry.Default
}

// RunFile resets the registry, invokes load to populate it (if
// non-nil), resolves the run plan, and executes every runnable test in
// registration order.
func (r *Runner) RunFile(path string, load Loader) *FileResult {
	start := time.Now()
	reg := r.registry()
	reg.Reset()

	fr := &FileResult{File: path}

	if load != nil {
		if err := safeLoad(load); err != nil {
			fr.LoadErr = ferror.Wrap(ferror.Execution, err, "failed to load test file %s", path)
			fr.Duration = time.Since(start)
			return fr
		}
	}

	plans := reg.Plan(r.Filter)
	for _, plan := range plans {
		fr.Results = append(fr.Results, r.runOne(plan))
	}
	fr.Duration = time.Since(start)
	return fr
}

func safeLoad(load Loader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while loading test file: %v", rec)
		}
	}()
	return load()
}

func (r *Runner) runOne(plan registry.RunnablePlan) *Result {
	test := plan.Test
	res := &Result{Path: test.Path(), Name: test.Name, Tags: registry.SortedTagSet(test)}

	if !plan.Run {
		res.Status = Skip
		res.SkipReason = plan.SkipReason
		return res
	}
	if structErr := firstStructuralErr(test); structErr != nil {
		res.Status = Error
		res.Err = ferror.Wrap(ferror.Internal, structErr, "enclosing describe block failed to register")
		return res
	}
	if test.Body == nil {
		res.Status = Pending
		return res
	}

	pathStr := test.Path().String()
	if r.Instrumentation != nil {
		r.Instrumentation.StartTest(pathStr)
	}

	start := time.Now()
	runErr := r.execute(test)
	res.MockLeaked = mock.ActiveCount() > 0
	mock.RestoreAll()
	res.Duration = time.Since(start)

	switch {
	case runErr != nil && test.ExpectErr:
		res.Status = Pass
	case runErr != nil:
		res.Status = Fail
		res.Err = runErr
	case test.ExpectErr:
		res.Status = Fail
		res.Err = ferror.New(ferror.Validation, "expected test to raise an error, but it completed without one")
	default:
		res.Status = Pass
	}

	if r.Instrumentation != nil {
		r.Instrumentation.StopTest(pathStr, res)
	}
	return res
}

func firstStructuralErr(b *registry.Block) error {
	for n := b.Parent; n != nil; n = n.Parent {
		if n.StructuralErr != nil {
			return n.StructuralErr
		}
	}
	return nil
}

// execute runs a test's full before_each/body/after_each chain,
// applying the per-test timeout (own, else the Runner's default) and
// the sync/async dispatch from spec §4.3.
func (r *Runner) execute(test *registry.Block) error {
	before, after := registry.Hooks(test)
	ctx := &registry.Context{Path: test.Path(), Test: test}

	timeout := time.Duration(test.TimeoutMS) * time.Millisecond
	if timeout == 0 {
		timeout = r.Timeout
	}

	var runErr error
	for _, h := range before {
		if err := runWithTimeout(func() error { return h(ctx) }, timeout); err != nil {
			runErr = err
			break
		}
	}

	if runErr == nil {
		runErr = r.runBody(test, ctx, timeout)
	}

	for i := 0; i < len(after); i++ {
		h := after[i]
		if err := runWithTimeout(func() error { return h(ctx) }, timeout); err != nil && runErr == nil {
			runErr = err
		}
	}

	return runErr
}

func (r *Runner) runBody(test *registry.Block, ctx *registry.Context, timeout time.Duration) error {
	if !test.Async {
		return runWithTimeout(func() error { return test.Body(ctx) }, timeout)
	}

	sched := async.NewScheduler()
	return sched.Run(func(task *async.Task) error {
		ctx.Runtime = &T{Context: ctx, Async: task}
		return test.Body(ctx)
	}, timeout)
}

// runWithTimeout runs fn on its own goroutine, recovering panics into
// errors, and returns a TIMEOUT ferror.Error if it doesn't finish
// within timeout (0 means no timeout). This is the sync-body analogue
// of the teacher's per-test context.WithTimeout wrapping.
func runWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("panic: %v", rec)
			}
		}()
		done <- fn()
	}()

	if timeout <= 0 {
		return <-done
	}
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return ferror.New(ferror.Timeout, "exceeded timeout of %s", timeout)
	}
}
