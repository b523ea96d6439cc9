// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package mock

import (
	"reflect"
	"sync"

	"github.com/greggh/firmo/ferror"
)

// Stub is a Spy pre-programmed with return values, with no
// call-through target. Successive calls consume a queue of programmed
// results; once the queue is exhausted the last entry repeats.
type Stub struct {
	*Spy

	mu    sync.Mutex
	queue [][]any
	pos   int
}

// NewStub creates a Stub shaped like fnType with no return values
// queued yet; call Returns or ReturnsSequence before wiring it in.
func NewStub(fnType reflect.Type) (*Stub, error) {
	spy, err := NewSpyOfType(fnType)
	if err != nil {
		return nil, err
	}
	st := &Stub{Spy: spy}
	st.Spy.SetStub(st.invoke)
	return st, nil
}

// Returns sets a single fixed return value set used for every call.
func (st *Stub) Returns(values ...any) *Stub {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.queue = [][]any{values}
	st.pos = 0
	return st
}

// ReturnsSequence queues a distinct return value set per call; the
// nth call consumes the nth entry, and the final entry repeats once
// the queue is exhausted.
func (st *Stub) ReturnsSequence(sequences ...[]any) *Stub {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.queue = sequences
	st.pos = 0
	return st
}

func (st *Stub) invoke(args []reflect.Value) []reflect.Value {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.queue) == 0 {
		return zeroValues(st.fnType)
	}
	idx := st.pos
	if idx >= len(st.queue) {
		idx = len(st.queue) - 1
	} else {
		st.pos++
	}
	values := st.queue[idx]

	out := make([]reflect.Value, st.fnType.NumOut())
	for i := range out {
		if i < len(values) && values[i] != nil {
			out[i] = reflect.ValueOf(values[i])
			continue
		}
		out[i] = reflect.Zero(st.fnType.Out(i))
	}
	return out
}

// Times asserts the stub was invoked exactly n times, returning a
// VALIDATION ferror.Error when it was not.
func (st *Stub) Times(n int) error {
	got := st.CallCount()
	if got != n {
		return ferror.New(ferror.Validation, "expected %d calls, got %d", n, got)
	}
	return nil
}
