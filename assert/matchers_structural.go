// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package assert

import (
	"reflect"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// HaveProperty matches a map key or struct field's presence and,
// optionally, its value. Maps are looked up by key directly; structs by
// exported field name.
func (a *Assertion) HaveProperty(key string, value ...any) error {
	got, ok := propertyLookup(a.value, key)
	if !ok {
		return a.result("have_property", CategoryStructural, false, key, "")
	}
	if len(value) == 0 {
		return a.result("have_property", CategoryStructural, true, key, "")
	}
	matched, diff := deepEqualWithDiff(got, value[0])
	return a.result("have_property", CategoryStructural, matched, value[0], diff)
}

func propertyLookup(v any, key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		mv := rv.MapIndex(reflect.ValueOf(key))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		fv := rv.FieldByName(key)
		if !fv.IsValid() {
			return nil, false
		}
		return fv.Interface(), true
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, false
		}
		return propertyLookup(rv.Elem().Interface(), key)
	default:
		return nil, false
	}
}

// MatchSchema validates the value (expected to already be JSON-shaped:
// map[string]any, []any, or a scalar) against a JSON Schema document
// (raw JSON string, or a map[string]any).
func (a *Assertion) MatchSchema(schema any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	if s, ok := schema.(string); ok {
		schemaLoader = gojsonschema.NewStringLoader(s)
	}
	documentLoader := gojsonschema.NewGoLoader(a.value)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return a.result("match_schema", CategorySchema, false, schema, err.Error())
	}
	if result.Valid() {
		return a.result("match_schema", CategorySchema, true, schema, "")
	}
	diff := ""
	for i, desc := range result.Errors() {
		if i > 0 {
			diff += "\n"
		}
		diff += desc.String()
	}
	return a.result("match_schema", CategorySchema, false, schema, diff)
}

// BeBefore matches value (a time.Time) preceding other.
func (a *Assertion) BeBefore(other time.Time) error {
	t, ok := a.value.(time.Time)
	return a.result("be_before", CategoryComparison, ok && t.Before(other), other, "")
}

// BeAfter matches value (a time.Time) following other.
func (a *Assertion) BeAfter(other time.Time) error {
	t, ok := a.value.(time.Time)
	return a.result("be_after", CategoryComparison, ok && t.After(other), other, "")
}
