// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package mock implements the spy/stub/mock system described in spec
// §4.4: call recording, stubbed return values, before/after call
// ordering, and a process-wide restore discipline so a test's doubles
// never leak into the next one.
package mock

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/greggh/firmo/ferror"
)

// sequenceCounter is a process-wide monotonic call counter, mirroring
// the teacher's rewriteDuplicateTestNames count-map idiom generalized
// from "per name" to "globally, per call".
var sequenceCounter uint64

func nextSequence() uint64 {
	return atomic.AddUint64(&sequenceCounter, 1)
}

// CallRecord captures one invocation of a spied function: its
// arguments, its return values, a logical caller identity (since Go
// does not expose real goroutine IDs, a uuid is minted per Spy to tag
// which logical caller made the call), and its position in the
// process-wide call sequence.
type CallRecord struct {
	Args     []any
	Returned []any
	CallerID string
	Sequence uint64
}

// Spy wraps a function value, recording every call made through
// Fn(). If an underlying implementation was supplied to NewSpy, calls
// pass through to it unless a stub function is installed with
// SetStub.
type Spy struct {
	mu       sync.Mutex
	fnType   reflect.Type
	target   reflect.Value // zero Value if there is nothing to call through to
	stub     func([]reflect.Value) []reflect.Value
	calls    []CallRecord
	callerID string
}

// NewSpy wraps target, a non-nil function value, in a Spy that calls
// through to it. For a spy with no call-through, use NewSpyOfType.
func NewSpy(target any) (*Spy, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Func {
		return nil, ferror.New(ferror.Validation, "mock: NewSpy requires a function value, got %T", target)
	}
	return &Spy{fnType: v.Type(), target: v, callerID: uuid.NewString()}, nil
}

// NewSpyOfType creates a Spy with no call-through implementation,
// shaped like a zero-value instance of fnType (a reflect.Func type).
// Every call returns the zero value for each output unless SetStub is
// used.
func NewSpyOfType(fnType reflect.Type) (*Spy, error) {
	if fnType.Kind() != reflect.Func {
		return nil, ferror.New(ferror.Validation, "mock: NewSpyOfType requires a func reflect.Type")
	}
	return &Spy{fnType: fnType, callerID: uuid.NewString()}, nil
}

// SetStub installs a stub implementation in place of the pass-through
// target. fn receives and must return reflect.Value slices matching
// the spy's function signature.
func (s *Spy) SetStub(fn func([]reflect.Value) []reflect.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stub = fn
}

// Fn returns a callable function value (as any, ready for assignment
// to a struct field or variable of the spied signature) that records
// each call.
func (s *Spy) Fn() any {
	return reflect.MakeFunc(s.fnType, s.invoke).Interface()
}

func (s *Spy) invoke(args []reflect.Value) []reflect.Value {
	seq := nextSequence()
	rec := CallRecord{Args: toAnySlice(args), CallerID: s.callerID, Sequence: seq}

	var out []reflect.Value
	s.mu.Lock()
	stub := s.stub
	target := s.target
	s.mu.Unlock()

	switch {
	case stub != nil:
		out = stub(args)
	case target.IsValid():
		out = target.Call(args)
	default:
		out = zeroValues(s.fnType)
	}

	rec.Returned = toAnySlice(out)

	s.mu.Lock()
	s.calls = append(s.calls, rec)
	s.mu.Unlock()
	return out
}

// Calls returns a copy of every call recorded so far, in call order.
func (s *Spy) Calls() []CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallRecord, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of times the spy has been invoked.
func (s *Spy) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// CalledBefore reports whether s was called at least once, and its
// first call's process-wide sequence number precedes other's first
// recorded call.
func (s *Spy) CalledBefore(other *Spy) bool {
	s.mu.Lock()
	sFirst, sOK := firstSequence(s.calls)
	s.mu.Unlock()
	if !sOK {
		return false
	}
	other.mu.Lock()
	oFirst, oOK := firstSequence(other.calls)
	other.mu.Unlock()
	return oOK && sFirst < oFirst
}

func firstSequence(calls []CallRecord) (uint64, bool) {
	if len(calls) == 0 {
		return 0, false
	}
	return calls[0].Sequence, true
}

func toAnySlice(vs []reflect.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		if v.IsValid() {
			out[i] = v.Interface()
		}
	}
	return out
}

func zeroValues(fnType reflect.Type) []reflect.Value {
	out := make([]reflect.Value, fnType.NumOut())
	for i := range out {
		out[i] = reflect.Zero(fnType.Out(i))
	}
	return out
}
