// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package flagutil provides pflag.Value-compatible flag types for
// cmd/, grounded on the teacher's util.EnumFlag (an enumerated string
// flag rejecting any value outside a fixed set), reimplemented locally
// since util.EnumFlag itself lives behind the teacher's internal v1
// package and isn't importable.
package flagutil

import "fmt"

// EnumFlag implements pflag.Value, accepting only one of a fixed set
// of string values, for flags like --console-format whose value space
// is closed (spec §6).
type EnumFlag struct {
	Value string
	vs    map[string]struct{}
	opts  []string
}

// NewEnumFlag returns an EnumFlag defaulting to defaultValue, whose
// Set rejects anything outside vs.
func NewEnumFlag(defaultValue string, vs []string) *EnumFlag {
	set := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return &EnumFlag{Value: defaultValue, vs: set, opts: vs}
}

// Set implements pflag.Value.
func (f *EnumFlag) Set(s string) error {
	if _, ok := f.vs[s]; !ok {
		return fmt.Errorf("invalid value %q, valid values are %v", s, f.opts)
	}
	f.Value = s
	return nil
}

// String implements pflag.Value.
func (f *EnumFlag) String() string {
	if f == nil {
		return ""
	}
	return f.Value
}

// Type implements pflag.Value.
func (f *EnumFlag) Type() string { return "string" }
