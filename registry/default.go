// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package registry

// Default is the process-wide Registry that a test file's Describe/It
// calls populate. The runner package resets it once per file, per
// spec §4.5 step 1, so package-level convenience calls (Describe, It,
// ...) can be used directly from test source without every file
// threading its own *Registry through.
var Default = New()

func Describe(name string, body SuiteBody, opts ...Option) { Default.Describe(name, body, opts...) }
func FDescribe(name string, body SuiteBody, opts ...Option) { Default.FDescribe(name, body, opts...) }
func XDescribe(name, reason string, body SuiteBody, opts ...Option) {
	Default.XDescribe(name, reason, body, opts...)
}

func It(name string, body Body, opts ...Option) *Block { return Default.It(name, body, opts...) }
func FIt(name string, body Body, opts ...Option) *Block { return Default.FIt(name, body, opts...) }
func XIt(name, reason string, opts ...Option) *Block    { return Default.XIt(name, reason, opts...) }

func Before(fn Hook) { Default.Before(fn) }
func After(fn Hook)  { Default.After(fn) }
func Tags(tags ...string) { Default.Tags(tags...) }
