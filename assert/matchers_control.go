// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package assert

import "fmt"

// Change runs the subject closure (the assertion's value, a func() or
// func() error) and compares probe()'s result before and after, matching
// when the probe's value changed at all, per spec §4.1.
func (a *Assertion) Change(probe func() any) error {
	before := probe()
	runSubject(a.value)
	after := probe()
	matched := !safeCmpEqual(before, after)
	return a.result("change", CategoryChange, matched, nil, changeDiff(before, after))
}

// Increase matches when probe()'s numeric result strictly increased.
func (a *Assertion) Increase(probe func() any) error {
	before, _ := asFloat(probe())
	runSubject(a.value)
	after, _ := asFloat(probe())
	return a.result("increase", CategoryChange, after > before, nil, changeDiff(before, after))
}

// Decrease matches when probe()'s numeric result strictly decreased.
func (a *Assertion) Decrease(probe func() any) error {
	before, _ := asFloat(probe())
	runSubject(a.value)
	after, _ := asFloat(probe())
	return a.result("decrease", CategoryChange, after < before, nil, changeDiff(before, after))
}

func changeDiff(before, after any) string {
	return fmt.Sprintf("%v -> %v", before, after)
}

// runSubject invokes the assertion's value as the subject closure for
// Change/Increase/Decrease. Panics are not recovered here: an erroring
// subject is an execution failure, not an assertion mismatch.
func runSubject(v any) {
	switch fn := v.(type) {
	case func():
		fn()
	case func() error:
		if err := fn(); err != nil {
			panic(err)
		}
	default:
		panic(fmt.Errorf("change/increase/decrease: value is not a callable subject"))
	}
}

// ThrowAssertion is returned by Assertion.Throw and exposes the
// throw.error_matching(pattern) terminal matcher from spec §4.1.
type ThrowAssertion struct {
	parent *Assertion
	err    error
}

// Throw runs the assertion's value (a func() or func() error) and
// captures any raised error or panic for inspection by ErrorMatching or
// bare Error.
func (a *Assertion) Throw() *ThrowAssertion {
	return &ThrowAssertion{parent: a, err: runAndCapture(a.value)}
}

// Error matches when the subject raised anything at all.
func (t *ThrowAssertion) Error() error {
	return t.parent.result("throw", CategoryError, t.err != nil, nil, "")
}

// ErrorMatching matches when the subject raised an error whose rendered
// message matches pattern (a regular expression).
func (t *ThrowAssertion) ErrorMatching(pattern string) error {
	if t.err == nil {
		return t.parent.result("throw.error_matching", CategoryError, false, pattern, "")
	}
	re, err := compileRegex(pattern)
	if err != nil {
		return t.parent.result("throw.error_matching", CategoryError, false, pattern, fmt.Sprintf("invalid pattern: %v", err))
	}
	return t.parent.result("throw.error_matching", CategoryError, re.MatchString(t.err.Error()), pattern, "")
}

func runAndCapture(v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	switch fn := v.(type) {
	case func() error:
		return fn()
	case func():
		fn()
		return nil
	default:
		return fmt.Errorf("throw: value is not a callable subject")
	}
}
