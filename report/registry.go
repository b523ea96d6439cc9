// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package report

import (
	"sort"
	"sync"

	"github.com/greggh/firmo/ferror"
)

// Formatter renders a Normalized report to bytes. Extension is used by
// the Writer to fill a path template's {format} placeholder when
// Name() itself isn't a file extension (e.g. "junit" writes .xml).
type Formatter interface {
	Name() string
	ReportType() Type
	Extension() string
	Format(*Normalized) ([]byte, error)
}

// FormatterFactory produces a fresh Formatter per call, letting
// registration accept either a stateless value or a constructor, per
// spec §9 ("Registration accepts either a value or a factory").
type FormatterFactory func() Formatter

// Registry maps (report type, name) to a FormatterFactory. It is
// process-local with no stable binary ABI requirement, per spec §9.
type Registry struct {
	mu    sync.Mutex
	byKey map[Type]map[string]FormatterFactory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: map[Type]map[string]FormatterFactory{}}
}

// Register installs factory under (f.ReportType(), f.Name()), calling
// factory once just to read those identifying fields.
func (r *Registry) Register(factory FormatterFactory) {
	f := factory()
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byKey[f.ReportType()]
	if !ok {
		m = map[string]FormatterFactory{}
		r.byKey[f.ReportType()] = m
	}
	m[f.Name()] = factory
}

// RegisterValue installs a single stateless Formatter value.
func (r *Registry) RegisterValue(f Formatter) {
	r.Register(func() Formatter { return f })
}

// Get resolves (reportType, name) to a fresh Formatter instance.
func (r *Registry) Get(reportType Type, name string) (Formatter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byKey[reportType]
	if !ok {
		return nil, ferror.New(ferror.Validation, "report: no formatters registered for type %q", reportType)
	}
	factory, ok := m[name]
	if !ok {
		return nil, ferror.New(ferror.Validation, "report: no formatter %q registered for type %q", name, reportType)
	}
	return factory(), nil
}

// Names returns every formatter name registered for reportType, sorted.
func (r *Registry) Names(reportType Type) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byKey[reportType]
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewDefaultRegistry returns a Registry with every built-in formatter
// from spec §4.8 registered: HTML, JSON, LCOV, Cobertura XML, JUnit
// XML, TAP, CSV, Markdown, and a plain text summary.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range builtinFormatters() {
		r.RegisterValue(f)
	}
	return r
}
