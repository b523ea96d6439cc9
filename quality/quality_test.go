// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package quality

import (
	"testing"
	"time"

	"github.com/greggh/firmo/assert"
	"github.com/greggh/firmo/registry"
	"github.com/greggh/firmo/runner"
)

func TestCollectorGradesBasicLevel(t *testing.T) {
	reg := registry.New()
	reg.Describe("math", func() {
		reg.It("adds", func(*registry.Context) error { return nil })
	})

	c := NewCollector()
	c.Observe(reg)

	path := reg.Tests()[0].Path().String()
	c.StartTest(path)
	rec := c.Recorder()
	_ = assert.That(4, assert.WithRecorder(rec)).To().Equal(4)
	c.StopTest(path, &runner.Result{Status: runner.Pass, Duration: time.Millisecond})

	rep := c.Report()
	if len(rep.PerTest) != 1 {
		t.Fatalf("expected 1 graded test, got %d", len(rep.PerTest))
	}
	if rep.PerTest[0].Achieved < LevelBasic {
		t.Fatalf("expected at least basic level, got %s", rep.PerTest[0].Achieved)
	}
}

func TestEmptyDescribeIsStructuralIssue(t *testing.T) {
	reg := registry.New()
	reg.Describe("empty suite", func() {})

	c := NewCollector()
	c.Observe(reg)
	rep := c.Report()
	if len(rep.StructuralIssues) != 1 {
		t.Fatalf("expected 1 structural issue for the empty describe, got %d: %v", len(rep.StructuralIssues), rep.StructuralIssues)
	}
}

func TestDefaultEdgeCasePredicate(t *testing.T) {
	cases := map[string]bool{
		"handles nil input":   true,
		"boundary conditions": true,
		"adds two numbers":    false,
	}
	for name, want := range cases {
		if got := DefaultEdgeCasePredicate(name); got != want {
			t.Errorf("DefaultEdgeCasePredicate(%q) = %v, want %v", name, got, want)
		}
	}
}
