// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package mock

import (
	"reflect"
	"sync"

	"github.com/greggh/firmo/ferror"
)

// Mock wraps a struct value's function-typed fields (the idiomatic Go
// dependency-injection seam: a Deps struct whose fields are func
// values) so that individual fields can be replaced with Spy or Stub
// implementations and later restored verbatim.
type Mock struct {
	mu        sync.Mutex
	target    reflect.Value // addressable struct value being mocked
	originals map[string]reflect.Value
	spies     map[string]*Spy
}

// New wraps target, which must be a non-nil pointer to a struct, for
// field-level mocking.
func New(target any) (*Mock, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, ferror.New(ferror.Validation, "mock: New requires a non-nil pointer to a struct, got %T", target)
	}
	m := &Mock{
		target:    v.Elem(),
		originals: map[string]reflect.Value{},
		spies:     map[string]*Spy{},
	}
	register(m)
	return m, nil
}

// When replaces the named field (which must hold a function value)
// with a Spy that calls through to the field's original
// implementation, and returns that Spy for call inspection.
func (m *Mock) When(field string) (*Spy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fv := m.target.FieldByName(field)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, ferror.New(ferror.Validation, "mock: field %q is not a function field", field)
	}
	if _, already := m.originals[field]; !already {
		m.originals[field] = reflect.ValueOf(fv.Interface())
	}

	spy, err := NewSpy(m.originals[field].Interface())
	if err != nil {
		return nil, err
	}
	fv.Set(reflect.ValueOf(spy.Fn()))
	m.spies[field] = spy
	return spy, nil
}

// Stub replaces the named field with a Stub (no call-through) and
// returns it so return values can be programmed with Returns /
// ReturnsSequence.
func (m *Mock) Stub(field string) (*Stub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fv := m.target.FieldByName(field)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, ferror.New(ferror.Validation, "mock: field %q is not a function field", field)
	}
	if _, already := m.originals[field]; !already {
		m.originals[field] = reflect.ValueOf(fv.Interface())
	}

	stub, err := NewStub(fv.Type())
	if err != nil {
		return nil, err
	}
	fv.Set(reflect.ValueOf(stub.Fn()))
	m.spies[field] = stub.Spy
	return stub, nil
}

// Spy returns the Spy installed for field, if any.
func (m *Mock) Spy(field string) (*Spy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spies[field]
	return s, ok
}

// Restore reverts every field this Mock touched back to its original
// value. It is idempotent.
func (m *Mock) Restore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for field, original := range m.originals {
		fv := m.target.FieldByName(field)
		if fv.IsValid() && fv.CanSet() {
			fv.Set(original)
		}
	}
	m.originals = map[string]reflect.Value{}
	m.spies = map[string]*Spy{}
	unregister(m)
}

// registry tracks every live Mock so RestoreAll can undo all
// outstanding doubles between tests, mirroring the teacher's
// activate-then-rollback discipline for compiler stages.
var (
	registryMu sync.Mutex
	active     []*Mock
)

func register(m *Mock) {
	registryMu.Lock()
	defer registryMu.Unlock()
	active = append(active, m)
}

func unregister(m *Mock) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for i, mm := range active {
		if mm == m {
			active = append(active[:i], active[i+1:]...)
			return
		}
	}
}

// RestoreAll restores every currently active Mock, in reverse
// registration order, and clears the registry. A test file's runner
// calls this after each test so doubles never leak across test
// boundaries.
func RestoreAll() {
	registryMu.Lock()
	toRestore := make([]*Mock, len(active))
	copy(toRestore, active)
	registryMu.Unlock()

	for i := len(toRestore) - 1; i >= 0; i-- {
		toRestore[i].Restore()
	}
}

// ActiveCount reports how many Mocks remain unrestored. A non-zero
// count after a test completes is a LEAK issue for the quality
// module to record (spec §4.7).
func ActiveCount() int {
	registryMu.Lock()
	defer registryMu.Unlock()
	return len(active)
}
