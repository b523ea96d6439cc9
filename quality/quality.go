// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package quality grades the test metadata collected by a run against
// five progressive levels, per spec §4.7. It hooks into the same
// runner.Instrumentation boundary coverage.Tracker uses, so the runner
// never imports quality directly, mirroring the teacher's ast.Compiler
// staged-pipeline idiom (ordered named stages that each either pass or
// append issues) ported from "compile a module" to "grade a test".
package quality

import (
	"sort"
	"strings"
	"sync"

	"github.com/greggh/firmo/assert"
	"github.com/greggh/firmo/registry"
	"github.com/greggh/firmo/runner"
)

// Level is one of the five progressive grading tiers.
type Level int

const (
	LevelBasic         Level = 1
	LevelStandard      Level = 2
	LevelComprehensive Level = 3
	LevelAdvanced      Level = 4
	LevelComplete      Level = 5
)

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelStandard:
		return "standard"
	case LevelComprehensive:
		return "comprehensive"
	case LevelAdvanced:
		return "advanced"
	case LevelComplete:
		return "complete"
	default:
		return "none"
	}
}

// Issue is a single quality deficiency recorded against a test or a
// suite.
type Issue struct {
	Category string
	Message  string
}

// suiteMeta is the statically-derived, per-suite information Observe
// collects by walking the registry tree once before a run starts.
type suiteMeta struct {
	hasBeforeAfter bool
	testNames      []string
	tags           map[string]struct{}
	empty          bool
}

// testState accumulates everything a test's grading needs: categories
// seen by matcher invocations, whether mock verification was
// exercised, and whether the enclosing suite used hooks.
type testState struct {
	path            registry.Path
	name            string
	suitePath       string
	categories      map[assert.Category]struct{}
	mockVerified    bool
	mockLeaked      bool
	boundaryTest    bool
	edgeCaseInSuite bool
	groupingTagUsed bool
	expectErrorTest bool
	result          *runner.Result
}

// PerTest is one test's graded outcome, the Go rendering of
// QualityReport.per_test.
type PerTest struct {
	Path     string
	Achieved Level
	Issues   []Issue
}

// Summary is the aggregate grading outcome, the Go rendering of
// QualityReport.summary.
type Summary struct {
	TestsAnalyzed              int
	TestsPassingQuality        int
	AssertionTypeDistribution  map[string]int
	AchievedLevel              Level
}

// Report is the Go rendering of spec's QualityReport.
type Report struct {
	TargetLevel   Level
	PerTest       []PerTest
	Summary       Summary
	StructuralIssues []Issue
}

// EdgeCasePredicate decides whether a test name counts as an
// edge-case test for level 3's "edge case test exists in the
// describe" requirement. Per spec §9's Open Question, this is
// replaceable; DefaultEdgeCasePredicate is the documented default.
type EdgeCasePredicate func(name string) bool

// DefaultEdgeCasePredicate matches common edge-case name fragments,
// case-insensitively.
func DefaultEdgeCasePredicate(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range []string{"edge", "boundary", "nil", "empty", "error"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// BoundaryPredicate decides whether a test name counts as a
// boundary-condition test for level 4.
type BoundaryPredicate func(name string) bool

// DefaultBoundaryPredicate matches common boundary-condition name
// fragments.
func DefaultBoundaryPredicate(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range []string{"boundary", "limit", "min", "max", "overflow", "underflow"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Collector observes a run (via Observe before it starts, and as a
// runner.Instrumentation while it executes) and produces a Report on
// demand.
type Collector struct {
	EdgeCasePredicate EdgeCasePredicate
	BoundaryPredicate BoundaryPredicate
	TargetLevel       Level

	mu        sync.Mutex
	suites    map[string]*suiteMeta
	tests     map[string]*testState
	order     []string
	current   string
}

// NewCollector returns a Collector with the documented default
// predicates and a target level of Complete.
func NewCollector() *Collector {
	return &Collector{
		EdgeCasePredicate: DefaultEdgeCasePredicate,
		BoundaryPredicate: DefaultBoundaryPredicate,
		TargetLevel:       LevelComplete,
		suites:            map[string]*suiteMeta{},
		tests:             map[string]*testState{},
	}
}

// Observe walks reg's tree once, recording which suites use
// before/after hooks, which suites are empty, and the sibling test
// names needed for the edge-case/boundary heuristics. Call this after
// a file's tree is built, before running it.
func (c *Collector) Observe(reg *registry.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var walk func(*registry.Block)
	walk = func(b *registry.Block) {
		if b.Kind == registry.KindSuite && b.Parent != nil {
			key := b.Path().String()
			meta := &suiteMeta{
				hasBeforeAfter: len(b.BeforeEach) > 0 || len(b.AfterEach) > 0,
				tags:           b.Tags(),
			}
			leafCount := 0
			for _, child := range b.Children {
				if child.Kind == registry.KindTest {
					meta.testNames = append(meta.testNames, child.Name)
					leafCount++
				}
			}
			meta.empty = leafCount == 0 && !hasDescendantTest(b)
			c.suites[key] = meta
		}
		for _, child := range b.Children {
			walk(child)
		}
	}
	walk(reg.Root())

	for _, t := range reg.Tests() {
		key := t.Path().String()
		suiteKey := ""
		if t.Parent != nil {
			suiteKey = t.Parent.Path().String()
		}
		c.tests[key] = &testState{
			path:            t.Path(),
			name:            t.Name,
			suitePath:       suiteKey,
			categories:      map[assert.Category]struct{}{},
			expectErrorTest: t.ExpectErr,
		}
	}
}

func hasDescendantTest(b *registry.Block) bool {
	for _, c := range b.Children {
		if c.Kind == registry.KindTest || hasDescendantTest(c) {
			return true
		}
	}
	return false
}

// Recorder returns an assert.Recorder that attributes every matcher
// invocation to whichever test is currently StartTest'd. Pass it via
// assert.WithRecorder, or install it as the package-wide default with
// assert.SetDefaultRecorder so test bodies need no per-call wiring.
func (c *Collector) Recorder() assert.Recorder {
	return assert.RecorderFunc(func(matcher string, category assert.Category) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ts, ok := c.tests[c.current]; ok {
			ts.categories[category] = struct{}{}
		}
	})
}

// MarkMockVerified records that the currently-running test exercised
// mock call verification (e.g. Stub.Times), feeding
// level 4's "mock call verification used" check.
func (c *Collector) MarkMockVerified() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts, ok := c.tests[c.current]; ok {
		ts.mockVerified = true
	}
}

// StartTest implements runner.Instrumentation.
func (c *Collector) StartTest(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = path
	if _, ok := c.tests[path]; !ok {
		c.tests[path] = &testState{categories: map[assert.Category]struct{}{}}
	}
	c.order = append(c.order, path)
}

// StopTest implements runner.Instrumentation.
func (c *Collector) StopTest(path string, result *runner.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.tests[path]
	if !ok {
		return
	}
	ts.result = result
	ts.mockLeaked = result.MockLeaked
	if ts.suitePath != "" {
		if meta, ok := c.suites[ts.suitePath]; ok {
			for _, name := range meta.testNames {
				if c.EdgeCasePredicate != nil && c.EdgeCasePredicate(name) {
					ts.edgeCaseInSuite = true
				}
			}
			if _, unit := meta.tags["unit"]; unit {
				ts.groupingTagUsed = true
			}
			if _, integration := meta.tags["integration"]; integration {
				ts.groupingTagUsed = true
			}
		}
	}
	if c.BoundaryPredicate != nil && c.BoundaryPredicate(ts.name) {
		ts.boundaryTest = true
	}
	c.current = ""
}

// levelCheck is one of the five ordered, cumulative grading stages,
// mirroring the teacher's CompilerStageDefinition list: each either
// passes or appends an issue, and later checks presume earlier ones
// already held.
type levelCheck struct {
	level Level
	check func(*testState) []Issue
}

func distinctCategories(ts *testState) int {
	return len(ts.categories)
}

var levelChecks = []levelCheck{
	{LevelBasic, func(ts *testState) []Issue {
		var issues []Issue
		if len(ts.categories) == 0 {
			issues = append(issues, Issue{"basic", "test records no assertions"})
		}
		if ts.suitePath == "" {
			issues = append(issues, Issue{"basic", "test does not live inside a describe block"})
		}
		if strings.TrimSpace(ts.name) == "" {
			issues = append(issues, Issue{"basic", "test has an empty name"})
		}
		return issues
	}},
	{LevelStandard, func(ts *testState) []Issue {
		var issues []Issue
		if distinctCategories(ts) < 2 {
			issues = append(issues, Issue{"standard", "uses fewer than 2 distinct matcher categories"})
		}
		need := map[assert.Category]bool{assert.CategoryEquality: false, assert.CategoryTruthiness: false, assert.CategoryType: false}
		seen := 0
		for cat := range need {
			if _, ok := ts.categories[cat]; ok {
				seen++
			}
		}
		if seen < 2 {
			issues = append(issues, Issue{"standard", "uses fewer than 2 of {equality, truthiness, type} categories"})
		}
		return issues
	}},
	{LevelComprehensive, func(ts *testState) []Issue {
		var issues []Issue
		if distinctCategories(ts) < 3 {
			issues = append(issues, Issue{"comprehensive", "uses fewer than 3 distinct matcher categories"})
		}
		if ts.suitePath != "" {
			// hasBeforeAfter is looked up lazily by the caller via meta
		}
		if ts.mockLeaked {
			issues = append(issues, Issue{"comprehensive", "mocks were not restored (leak)"})
		}
		if !ts.edgeCaseInSuite {
			issues = append(issues, Issue{"comprehensive", "no edge-case test present in the enclosing describe"})
		}
		return issues
	}},
	{LevelAdvanced, func(ts *testState) []Issue {
		var issues []Issue
		if !ts.boundaryTest {
			issues = append(issues, Issue{"advanced", "no boundary-condition test present"})
		}
		if !ts.mockVerified {
			issues = append(issues, Issue{"advanced", "mock call verification was not used"})
		}
		if !ts.groupingTagUsed {
			issues = append(issues, Issue{"advanced", "no unit/integration grouping tag present"})
		}
		return issues
	}},
	{LevelComplete, func(ts *testState) []Issue {
		var issues []Issue
		if distinctCategories(ts) < 5 {
			issues = append(issues, Issue{"complete", "uses fewer than 5 distinct matcher categories"})
		}
		if !ts.expectErrorTest {
			issues = append(issues, Issue{"complete", "no expected-error test present"})
		}
		if ts.mockLeaked {
			issues = append(issues, Issue{"complete", "mock lifecycle is not leak-free"})
		}
		return issues
	}},
}

// meetsLevel evaluates every check 1..n cumulatively, per spec's "a
// test meets level N iff it satisfies all checks 1..N".
func (c *Collector) meetsLevel(ts *testState, n Level) []Issue {
	var all []Issue
	for _, lc := range levelChecks {
		if lc.level > n {
			break
		}
		if lc.level == LevelComprehensive && ts.suitePath != "" {
			if meta, ok := c.suites[ts.suitePath]; ok && !meta.hasBeforeAfter {
				all = append(all, Issue{"comprehensive", "enclosing suite does not use before/after hooks"})
			}
		}
		all = append(all, lc.check(ts)...)
	}
	return all
}

func (c *Collector) achievedLevel(ts *testState) Level {
	achieved := Level(0)
	for n := LevelBasic; n <= LevelComplete; n++ {
		if len(c.meetsLevel(ts, n)) == 0 {
			achieved = n
			continue
		}
		break
	}
	return achieved
}

// Report grades every observed test and produces the final Report,
// including top-level structural issues for empty describes.
func (c *Collector) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := Report{TargetLevel: c.TargetLevel, Summary: Summary{AssertionTypeDistribution: map[string]int{}}}

	paths := make([]string, 0, len(c.tests))
	for p := range c.tests {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		ts := c.tests[p]
		issues := c.meetsLevel(ts, c.TargetLevel)
		achieved := c.achievedLevel(ts)
		rep.PerTest = append(rep.PerTest, PerTest{Path: p, Achieved: achieved, Issues: issues})
		rep.Summary.TestsAnalyzed++
		if len(issues) == 0 {
			rep.Summary.TestsPassingQuality++
		}
		for cat := range ts.categories {
			rep.Summary.AssertionTypeDistribution[string(cat)]++
		}
		if rep.Summary.AchievedLevel == 0 || achieved < rep.Summary.AchievedLevel {
			rep.Summary.AchievedLevel = achieved
		}
	}
	if len(paths) == 0 {
		rep.Summary.AchievedLevel = 0
	}

	suiteKeys := make([]string, 0, len(c.suites))
	for k := range c.suites {
		suiteKeys = append(suiteKeys, k)
	}
	sort.Strings(suiteKeys)
	for _, k := range suiteKeys {
		if c.suites[k].empty {
			rep.StructuralIssues = append(rep.StructuralIssues, Issue{"structural", "empty describe block: " + k})
		}
	}

	return rep
}
