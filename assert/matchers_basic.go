// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package assert

import (
	"math"
	"reflect"
)

// Equal matches scalar equality directly, and defers to DeepEqual for
// composite values, per spec §4.1 ("equal on composites defers to
// deep_equal"). NaN never equals NaN, matching IEEE-754 semantics rather
// than structural identity.
func (a *Assertion) Equal(expected any) error {
	if isNaN(a.value) || isNaN(expected) {
		return a.result("equal", CategoryEquality, false, expected, "")
	}
	if isComposite(a.value) || isComposite(expected) {
		return a.DeepEqual(expected)
	}
	return a.result("equal", CategoryEquality, a.value == expected, expected, "")
}

// DeepEqual performs a structural, key-order-independent comparison.
// Cycles are handled safely (never infinite-loops), per spec §8.
func (a *Assertion) DeepEqual(expected any) error {
	matched, diff := deepEqualWithDiff(a.value, expected)
	return a.result("deep_equal", CategoryEquality, matched, expected, diff)
}

// Exist matches when the value is non-nil (and, for pointers/interfaces
// wrapping nil, still reports as not existing).
func (a *Assertion) Exist() error {
	return a.result("exist", CategoryTruthiness, !isNilish(a.value), nil, "")
}

// BeTruthy matches every value considered "truthy": anything except nil
// and false. As in Lua, zero numbers and empty strings are truthy, and
// so is a typed nil (e.g. a nil pointer held in an interface), matching
// the scripting-language "truthy" idiom firmo ports (only nil/false are
// falsy).
func (a *Assertion) BeTruthy() error {
	return a.result("be_truthy", CategoryTruthiness, isTruthy(a.value), true, "")
}

// BeFalsy is the complement of BeTruthy.
func (a *Assertion) BeFalsy() error {
	return a.result("be_falsy", CategoryTruthiness, !isTruthy(a.value), false, "")
}

// BeNil matches exactly nil (or a nil pointer/interface/slice/map).
func (a *Assertion) BeNil() error {
	return a.result("be_nil", CategoryTruthiness, isNilish(a.value), nil, "")
}

// BeA matches when the value's dynamic type name equals typeName, e.g.
// "string", "int", "[]interface {}".
func (a *Assertion) BeA(typeName_ string) error {
	return a.result("be_a", CategoryType, typeName(a.value) == typeName_, typeName_, "")
}

// BeGreaterThan matches ordered numeric comparisons.
func (a *Assertion) BeGreaterThan(n float64) error {
	v, ok := asFloat(a.value)
	return a.result("be_greater_than", CategoryComparison, ok && v > n, n, "")
}

// BeLessThan matches ordered numeric comparisons.
func (a *Assertion) BeLessThan(n float64) error {
	v, ok := asFloat(a.value)
	return a.result("be_less_than", CategoryComparison, ok && v < n, n, "")
}

// BeApproximately matches |a-b| <= eps.
func (a *Assertion) BeApproximately(n, eps float64) error {
	v, ok := asFloat(a.value)
	return a.result("be_approximately", CategoryComparison, ok && math.Abs(v-n) <= eps, n, "")
}

// HaveLength matches len(value) == n for strings, slices, arrays, maps,
// and channels.
func (a *Assertion) HaveLength(n int) error {
	l, ok := length(a.value)
	return a.result("have_length", CategoryStructural, ok && l == n, n, "")
}

func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

func isComposite(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr:
		return true
	default:
		return false
	}
}

func isNilish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}

func length(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len(), true
	default:
		return 0, false
	}
}
