// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package report normalizes coverage, quality, and test-result data
// into a single Normalized shape, dispatches it to a name-keyed
// formatter registry, and writes the formatted bytes to disk through
// path templates, directly grounded on the teacher's
// tester.Reporter/PrettyReporter/JSONReporter interface-plus-registry
// pattern (tester/reporter.go) and cover.Report/FileReport as the
// shape that gets normalized.
package report

import (
	"sort"
	"time"

	"github.com/greggh/firmo/coverage"
	"github.com/greggh/firmo/ferror"
	"github.com/greggh/firmo/quality"
	"github.com/greggh/firmo/runner"
)

// Type discriminates which kind of report a Normalized value carries.
type Type string

const (
	TypeCoverage Type = "coverage"
	TypeQuality  Type = "quality"
	TypeResults  Type = "results"
)

// FileSummary is one file's normalized coverage entry.
type FileSummary struct {
	Path            string
	ExecutableLines int
	CoveredLines    int
	Coverage        float64
}

// TestSummary is one test's normalized entry, the projection of
// runner.Result that formatters consume.
type TestSummary struct {
	Name       string
	Path       string
	FilePath   string
	Status     string
	DurationS  float64
	Error      string
	SkipReason string
	Tags       []string
}

// Summary is the report-type-agnostic top-level numbers every
// formatter can rely on being present after normalization.
type Summary struct {
	Total               int
	Passed              int
	Failed              int
	Skipped             int
	Errored             int
	Pending             int
	TotalExecutable     int
	TotalCovered        int
	CoveragePercent     float64
	TargetLevel         int
	AchievedLevel       int
	TestsAnalyzed       int
	TestsPassingQuality int
}

// Normalized is the canonical shape every Formatter consumes, the Go
// rendering of spec's NormalizedReport.
type Normalized struct {
	ReportType  Type
	GeneratedAt time.Time
	Summary     Summary
	Files       map[string]FileSummary
	Tests       []TestSummary
	Quality     *quality.Report
}

// Validate checks that a Normalized value carries the fields its
// report type requires, returning a VALIDATION ferror.Error listing
// every issue found (spec §4.8 "Validation").
func (n *Normalized) Validate() error {
	var issues []string
	if n.GeneratedAt.IsZero() {
		issues = append(issues, "generated_at is unset")
	}
	switch n.ReportType {
	case TypeCoverage:
		if n.Files == nil {
			issues = append(issues, "coverage report has no files map")
		}
	case TypeQuality:
		if n.Quality == nil {
			issues = append(issues, "quality report has no quality data")
		}
	case TypeResults:
		if n.Tests == nil {
			issues = append(issues, "results report has no tests")
		}
	default:
		issues = append(issues, "unknown report type")
	}
	if len(issues) == 0 {
		return nil
	}
	return ferror.New(ferror.Validation, "invalid report data: %v", issues).WithContext("issues", issues)
}

// NormalizeCoverage projects a coverage.Report into a Normalized
// value of TypeCoverage.
func NormalizeCoverage(rep coverage.Report, now time.Time) *Normalized {
	n := &Normalized{
		ReportType:  TypeCoverage,
		GeneratedAt: now,
		Files:       map[string]FileSummary{},
	}
	for path, fr := range rep.Files {
		n.Files[path] = FileSummary{
			Path:            path,
			ExecutableLines: fr.CoveredLines + fr.NotCoveredLines,
			CoveredLines:    fr.CoveredLines,
			Coverage:        fr.Coverage,
		}
	}
	n.Summary = Summary{
		TotalExecutable: rep.CoveredLines + rep.NotCoveredLines,
		TotalCovered:    rep.CoveredLines,
		CoveragePercent: rep.Coverage,
	}
	return n
}

// NormalizeQuality projects a quality.Report into a Normalized value
// of TypeQuality.
func NormalizeQuality(rep quality.Report, now time.Time) *Normalized {
	return &Normalized{
		ReportType:  TypeQuality,
		GeneratedAt: now,
		Quality:     &rep,
		Summary: Summary{
			TargetLevel:         int(rep.TargetLevel),
			AchievedLevel:       int(rep.Summary.AchievedLevel),
			TestsAnalyzed:       rep.Summary.TestsAnalyzed,
			TestsPassingQuality: rep.Summary.TestsPassingQuality,
		},
	}
}

// NormalizeResults projects a set of runner.FileResult values into a
// Normalized value of TypeResults.
func NormalizeResults(files []*runner.FileResult, now time.Time) *Normalized {
	n := &Normalized{ReportType: TypeResults, GeneratedAt: now}
	var total, passed, failed, skipped, errored, pending int
	for _, fr := range files {
		for _, r := range fr.Results {
			ts := TestSummary{
				Name:      r.Name,
				Path:      r.Path.String(),
				FilePath:  fr.File,
				Status:    string(r.Status),
				DurationS: r.Duration.Seconds(),
				Tags:      r.Tags,
			}
			if r.Err != nil {
				ts.Error = r.Err.Error()
			}
			ts.SkipReason = r.SkipReason
			n.Tests = append(n.Tests, ts)

			total++
			switch r.Status {
			case runner.Pass:
				passed++
			case runner.Fail:
				failed++
			case runner.Skip:
				skipped++
			case runner.Error:
				errored++
			case runner.Pending:
				pending++
			}
		}
	}
	sort.SliceStable(n.Tests, func(i, j int) bool {
		if n.Tests[i].FilePath != n.Tests[j].FilePath {
			return n.Tests[i].FilePath < n.Tests[j].FilePath
		}
		return n.Tests[i].Path < n.Tests[j].Path
	})
	n.Summary = Summary{Total: total, Passed: passed, Failed: failed, Skipped: skipped, Errored: errored, Pending: pending}
	return n
}
