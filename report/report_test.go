// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greggh/firmo/registry"
	"github.com/greggh/firmo/runner"
)

func sampleResults() []*runner.FileResult {
	mk := func(path string, status runner.Status) *runner.Result {
		return &runner.Result{Path: registry.Path{path}, Name: path, Status: status, Duration: 10 * time.Millisecond}
	}
	return []*runner.FileResult{
		{
			File: "math_test.go",
			Results: []*runner.Result{
				mk("adds", runner.Pass),
				mk("subtracts", runner.Pass),
				mk("divides", runner.Fail),
				mk("skips", runner.Skip),
				mk("panics", runner.Error),
			},
		},
	}
}

func TestNormalizeResultsCounts(t *testing.T) {
	n := NormalizeResults(sampleResults(), time.Now())
	assert.Equal(t, 5, n.Summary.Total)
	assert.Equal(t, 2, n.Summary.Passed)
	assert.Equal(t, 1, n.Summary.Failed)
	assert.Equal(t, 1, n.Summary.Skipped)
	assert.Equal(t, 1, n.Summary.Errored)
}

func TestJUnitFormatterProducesOneTestcasePerResult(t *testing.T) {
	n := NormalizeResults(sampleResults(), time.Now())
	f := junitFormatter{}
	data, err := f.Format(n)
	require.NoError(t, err)

	out := string(data)
	assert.Equal(t, 5, strings.Count(out, "<testcase"), "expected 5 testcase elements, got:\n%s", out)
	assert.Equal(t, 2, strings.Count(out, "<failure"), "expected 2 failure children (fail+error), got:\n%s", out)
}

func TestJSONRoundTripPreservesSummary(t *testing.T) {
	n := NormalizeResults(sampleResults(), time.Now())
	f := jsonFormatter{rt: TypeResults}
	data, err := f.Format(n)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Total": 5`)

	var back Normalized
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, n.Summary, back.Summary)
}

func TestWriterAtomicWriteAndFailureLeavesOriginalIntact(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	reg := NewDefaultRegistry()

	n := NormalizeResults(sampleResults(), time.Now())
	formatter, err := reg.Get(TypeResults, "json")
	require.NoError(t, err)

	path, err := w.Write(TypeResults, formatter, n, "", time.Now(), "")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	invalid := &Normalized{ReportType: TypeResults} // Tests nil -> Validate fails
	_, err = w.Write(TypeResults, formatter, invalid, "", time.Now(), "")
	assert.Error(t, err, "expected validation error for invalid report")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after, "expected the failed write to leave the existing report unchanged")
}

func TestAutoSaveWritesEveryRequestedFormat(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	reg := NewDefaultRegistry()

	reports := map[Type]*Normalized{
		TypeResults: NormalizeResults(sampleResults(), time.Now()),
	}
	written, err := AutoSave(w, reg, reports, []string{"json", "junit", "tap", "markdown"}, time.Now())
	require.NoError(t, err)
	assert.Len(t, written, 4)
}
