// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package assert implements the composable assertion chain described in
// spec §4.1: expect(value) returns a chain; connectors toggle negation or
// are purely structural sugar; a terminal matcher call either passes
// silently or returns a *ferror.Error of category ASSERTION carrying
// actual/expected/matcher/negated/diff.
package assert

import (
	"fmt"
	"reflect"

	"github.com/greggh/firmo/ferror"
)

// Category buckets a matcher for quality-module distribution tracking
// (spec §4.7 "distinct matcher categories").
type Category string

// Matcher categories used by the quality module's progressive checks.
const (
	CategoryEquality    Category = "equality"
	CategoryTruthiness  Category = "truthiness"
	CategoryType        Category = "type"
	CategoryComparison  Category = "comparison"
	CategoryStructural  Category = "structural"
	CategoryPattern     Category = "pattern"
	CategorySchema      Category = "schema"
	CategoryError       Category = "error"
	CategoryChange      Category = "change"
)

// Recorder observes every matcher invocation, regardless of outcome, so
// callers (the quality module, mainly) can build an
// assertion_type_distribution without re-walking every test body.
type Recorder interface {
	Record(matcher string, category Category)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(matcher string, category Category)

// Record implements Recorder.
func (f RecorderFunc) Record(matcher string, category Category) { f(matcher, category) }

// Assertion is the chain accumulator returned by That(value). Each
// matcher leaf is final: calling a matcher twice on the same chain is
// permitted (the chain does not forbid it) but Done() thereafter reports
// true, and a negation toggle after a matcher call has no retroactive
// effect on a prior result.
type Assertion struct {
	value    any
	negated  bool
	chain    []string
	done     bool
	recorder Recorder
}

// Option configures a new Assertion.
type Option func(*Assertion)

// WithRecorder attaches a Recorder that every matcher call on the
// resulting Assertion will notify.
func WithRecorder(r Recorder) Option {
	return func(a *Assertion) { a.recorder = r }
}

// defaultRecorder, when set, is notified by every chain that does not
// supply its own WithRecorder option. This lets a single process-wide
// observer (the quality module, in practice) see every matcher call
// without each test body threading an option through by hand, mirroring
// the central-config "subscribe to defaults" fan-out used elsewhere in
// the pack.
var defaultRecorder Recorder

// SetDefaultRecorder installs r as the process-wide fallback Recorder.
// Passing nil clears it.
func SetDefaultRecorder(r Recorder) { defaultRecorder = r }

// That begins a new assertion chain over value, mirroring the
// expect(value) entry point from spec §4.1.
func That(value any, opts ...Option) *Assertion {
	a := &Assertion{value: value, recorder: defaultRecorder}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Done reports whether a terminal matcher has already consumed this
// chain.
func (a *Assertion) Done() bool { return a.done }

// --- connectors ---
//
// Connectors are purely structural: they exist so a chain reads like
// prose (expect(x).to.be.a("string")). Only ToNot has an observable
// effect (negation). Repeating a connector, including To, is idempotent.

// To is a no-op connector.
func (a *Assertion) To() *Assertion { a.chain = append(a.chain, "to"); return a }

// ToNot toggles negation for the remainder of this chain. Calling it
// twice restores the original polarity (spec §8: to_not∘to_not≡identity).
func (a *Assertion) ToNot() *Assertion {
	a.negated = !a.negated
	a.chain = append(a.chain, "to_not")
	return a
}

// Not is an alias for ToNot, matching common BDD phrasing.
func (a *Assertion) Not() *Assertion { return a.ToNot() }

// Be is a no-op connector ("to.be.a(...)").
func (a *Assertion) Be() *Assertion { a.chain = append(a.chain, "be"); return a }

// A is a no-op connector ("to.be.a(...)").
func (a *Assertion) A() *Assertion { a.chain = append(a.chain, "a"); return a }

// An is an alias of A for grammatical fit ("to.be.an(...)").
func (a *Assertion) An() *Assertion { return a.A() }

// Have is a no-op connector ("to.have.length(...)").
func (a *Assertion) Have() *Assertion { a.chain = append(a.chain, "have"); return a }

func (a *Assertion) record(matcher string, category Category) {
	if a.recorder != nil {
		a.recorder.Record(matcher, category)
	}
	a.done = true
}

// result finalizes a matcher: matched is the un-negated outcome; pass is
// matched XOR negated. On failure it builds the ASSERTION ferror,
// including a rendered diff when one is supplied.
func (a *Assertion) result(matcher string, category Category, matched bool, expected any, diff string) error {
	a.record(matcher, category)
	pass := matched != a.negated
	if pass {
		return nil
	}
	e := ferror.New(ferror.Assertion, "%s", describeFailure(matcher, a.negated, a.value, expected)).
		WithContext("matcher", matcher).
		WithContext("actual", a.value).
		WithContext("expected", expected).
		WithContext("negated", a.negated)
	if diff != "" {
		e = e.WithContext("diff", diff)
	}
	return e
}

func describeFailure(matcher string, negated bool, actual, expected any) string {
	if negated {
		return fmt.Sprintf("expected %s to_not %s %s", render(actual), matcher, render(expected))
	}
	return fmt.Sprintf("expected %s to %s %s", render(actual), matcher, render(expected))
}

func render(v any) string {
	if v == nil {
		return "nil"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
