// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ferror implements the structured error value shared by every
// core component: a category, a message, free-form context, and an
// optional wrapped cause.
package ferror

import (
	"errors"
	"fmt"
)

// Category classifies an Error for callers that need to branch on kind
// (e.g. the runner converting a CONTEXT error differently than a MOCK
// error) without string-matching messages.
type Category string

// Error categories. See spec §7.
const (
	Assertion  Category = "ASSERTION"
	Context    Category = "CONTEXT"
	Timeout    Category = "TIMEOUT"
	Validation Category = "VALIDATION"
	IO         Category = "IO"
	Mock       Category = "MOCK"
	Execution  Category = "EXECUTION"
	Internal   Category = "INTERNAL"
)

// Location pinpoints where an error originated, when known. Both fields
// are optional; File may be empty for in-memory-only failures (e.g. a
// matcher invoked from a REPL one-liner).
type Location struct {
	File string
	Line int
}

// Error is the structured error value returned or raised by every
// fallible operation in firmo. It intentionally stays a small, flat
// struct (no inheritance chain) so that category-based branching and
// errors.As extraction remain simple.
type Error struct {
	Category Category
	Message  string
	Context  map[string]any
	Cause    error
	Location *Location
}

// New constructs an Error with the given category and formatted message.
func New(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap constructs an Error that carries cause as its Cause, preserving it
// for errors.Is/errors.As chains.
func Wrap(category Category, cause error, format string, args ...any) *Error {
	e := New(category, format, args...)
	e.Cause = cause
	return e
}

// WithContext returns a copy of e with key set in its Context map.
func (e *Error) WithContext(key string, value any) *Error {
	cp := *e
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	cp.Context = ctx
	return &cp
}

// WithLocation returns a copy of e annotated with a source location.
func (e *Error) WithLocation(file string, line int) *Error {
	cp := *e
	cp.Location = &Location{File: file, Line: line}
	return &cp
}

// Error implements the error interface. Rendering mirrors the
// "file:line: message" / "message" fallback used throughout the pack for
// located errors, falling back to a bare message when no location is
// known.
func (e *Error) Error() string {
	prefix := ""
	if e.Location != nil && e.Location.File != "" {
		prefix = fmt.Sprintf("%s:%d: ", e.Location.File, e.Location.Line)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s] %s: %v", prefix, e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s] %s", prefix, e.Category, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Category, allowing
// callers to write errors.Is(err, ferror.New(ferror.Timeout, "")) style
// checks. Message/Context/Cause are deliberately ignored for the
// comparison.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Category == e.Category
}

// CategoryOf returns the Category of err if it is (or wraps) an *Error,
// and ok=false otherwise.
func CategoryOf(err error) (Category, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Category, true
	}
	return "", false
}

// Is reports whether err belongs to category, whether or not err is
// itself a *Error (non-Error errors never match).
func Is(err error, category Category) bool {
	cat, ok := CategoryOf(err)
	return ok && cat == category
}
