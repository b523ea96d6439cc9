// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package coverage implements line coverage tracking: a Tracker hook
// invoked as instrumented code executes, include/exclude path
// filtering, a compact Range-based report, and a coverage threshold
// check, all directly ported from the teacher's cover.Cover.
package coverage

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/gobwas/glob"

	"github.com/greggh/firmo/runner"
)

// Tracker records which (file, line) pairs executed. It is the direct
// analogue of cover.Cover: where the teacher's TraceEvent hook fires
// off topdown.Event values from a single-threaded Rego evaluator, Hit
// is called directly by instrumented Go test bodies (or a future
// instrumentation front end), so it must be goroutine-safe on its own.
type Tracker struct {
	mu    sync.Mutex
	hits  map[string]map[int]uint64
	total map[string]map[int]struct{} // instrumentable lines, via RegisterExecutableLines

	include []glob.Glob
	exclude []glob.Glob

	decisionCache map[string]bool
}

// NewTracker compiles the include/exclude glob patterns once and
// returns an empty Tracker. A file is tracked when it matches no
// exclude pattern and (include is empty, or it matches an include
// pattern).
func NewTracker(include, exclude []string) (*Tracker, error) {
	t := &Tracker{
		hits:          map[string]map[int]uint64{},
		total:         map[string]map[int]struct{}{},
		decisionCache: map[string]bool{},
	}
	for _, p := range include {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("coverage: invalid include pattern %q: %w", p, err)
		}
		t.include = append(t.include, g)
	}
	for _, p := range exclude {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("coverage: invalid exclude pattern %q: %w", p, err)
		}
		t.exclude = append(t.exclude, g)
	}
	return t, nil
}

func (t *Tracker) shouldTrack(file string) bool {
	if decision, ok := t.decisionCache[file]; ok {
		return decision
	}
	decision := true
	for _, g := range t.exclude {
		if g.Match(file) {
			decision = false
			break
		}
	}
	if decision && len(t.include) > 0 {
		decision = false
		for _, g := range t.include {
			if g.Match(file) {
				decision = true
				break
			}
		}
	}
	t.decisionCache[file] = decision
	return decision
}

// Hit records that file's line executed once, incrementing its hit
// count. A line's coverage status (covered or not) only cares whether
// the count is nonzero; the count itself feeds stats persistence and
// accumulation across runs (spec §4.6 "hit counting").
func (t *Tracker) Hit(file string, line int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.shouldTrack(file) {
		return
	}
	m, ok := t.hits[file]
	if !ok {
		m = map[int]uint64{}
		t.hits[file] = m
	}
	m[line]++
}

// HitCount returns the number of times file's line has executed.
func (t *Tracker) HitCount(file string, line int) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hits[file][line]
}

// RegisterExecutableLines declares the set of lines in file that are
// capable of being covered, so the report can compute NotCovered
// ranges and a meaningful percentage. It is the Go-native replacement
// for the teacher's ast.WalkRules/ast.WalkExprs traversal over its own
// Rego AST: DiscoverExecutableLines performs the equivalent walk over
// Go source via go/parser.
func (t *Tracker) RegisterExecutableLines(file string, lines []int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.shouldTrack(file) {
		return
	}
	m, ok := t.total[file]
	if !ok {
		m = map[int]struct{}{}
		t.total[file] = m
	}
	for _, ln := range lines {
		m[ln] = struct{}{}
	}
}

// StartTest and StopTest satisfy runner.Instrumentation; coverage has
// no per-test bookkeeping beyond Hit, so both are no-ops. They exist
// so the orchestrator can wire a Tracker in as a runner.Instrumentation
// uniformly with quality.Collector.
func (t *Tracker) StartTest(string)                            {}
func (t *Tracker) StopTest(string, *runner.Result) {}

// Range is an inclusive line range, compacted from a sorted line list.
type Range struct {
	Start int
	End   int
}

func (r Range) contains(line int) bool { return line >= r.Start && line <= r.End }
func (r Range) length() int            { return r.End - r.Start + 1 }

// FileReport is one file's coverage summary.
type FileReport struct {
	File            string
	Covered         []Range
	NotCovered      []Range
	CoveredLines    int
	NotCoveredLines int
	Coverage        float64
}

// IsCovered reports whether line is within a covered range.
func (fr *FileReport) IsCovered(line int) bool {
	for _, r := range fr.Covered {
		if r.contains(line) {
			return true
		}
	}
	return false
}

// Report is the coverage summary across every tracked file.
type Report struct {
	Files           map[string]*FileReport
	CoveredLines    int
	NotCoveredLines int
	Coverage        float64
}

// CoverageThresholdError is raised when overall coverage falls below a
// configured minimum.
type CoverageThresholdError struct {
	Coverage  float64
	Threshold float64
}

func (e *CoverageThresholdError) Error() string {
	return fmt.Sprintf("code coverage threshold not met: got %.2f, want >= %.2f", e.Coverage, e.Threshold)
}

// Report builds the Report snapshot of everything recorded so far.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := Report{Files: map[string]*FileReport{}}
	files := map[string]struct{}{}
	for f := range t.hits {
		files[f] = struct{}{}
	}
	for f := range t.total {
		files[f] = struct{}{}
	}

	var coveredLoc, notCoveredLoc int
	for file := range files {
		covered := sortedLines(t.hits[file])
		total := t.total[file]

		var notCovered []int
		for ln := range total {
			if _, hit := t.hits[file][ln]; !hit {
				notCovered = append(notCovered, ln)
			}
		}
		sort.Ints(notCovered)

		fr := &FileReport{
			File:       file,
			Covered:    compactRanges(covered),
			NotCovered: compactRanges(notCovered),
		}
		fr.CoveredLines = rangesLen(fr.Covered)
		fr.NotCoveredLines = rangesLen(fr.NotCovered)
		fr.Coverage = percentage(fr.CoveredLines, fr.NotCoveredLines)

		out.Files[file] = fr
		coveredLoc += fr.CoveredLines
		notCoveredLoc += fr.NotCoveredLines
	}

	out.CoveredLines = coveredLoc
	out.NotCoveredLines = notCoveredLoc
	out.Coverage = percentage(coveredLoc, notCoveredLoc)
	return out
}

// CheckThreshold returns a *CoverageThresholdError if the report's
// overall coverage is below threshold (a percentage, 0-100).
func (r Report) CheckThreshold(threshold float64) error {
	if r.Coverage < threshold {
		return &CoverageThresholdError{Coverage: r.Coverage, Threshold: threshold}
	}
	return nil
}

func sortedLines(m map[int]uint64) []int {
	out := make([]int, 0, len(m))
	for ln := range m {
		out = append(out, ln)
	}
	sort.Ints(out)
	return out
}

func compactRanges(sorted []int) []Range {
	if len(sorted) == 0 {
		return nil
	}
	var ranges []Range
	start, end := sorted[0], sorted[0]
	for _, ln := range sorted[1:] {
		if ln == end+1 {
			end = ln
			continue
		}
		ranges = append(ranges, Range{Start: start, End: end})
		start, end = ln, ln
	}
	ranges = append(ranges, Range{Start: start, End: end})
	return ranges
}

func rangesLen(ranges []Range) int {
	total := 0
	for _, r := range ranges {
		total += r.length()
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percentage computes covered/total as a rounded 0-100 value. A file
// (or summary) with zero executable lines reports 100%, per spec §4.6.
func percentage(covered, notCovered int) float64 {
	total := covered + notCovered
	if total == 0 {
		return 100
	}
	return round2(100 * float64(covered) / float64(total))
}
