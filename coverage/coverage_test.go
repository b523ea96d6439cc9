// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package coverage

import (
	"path/filepath"
	"testing"
)

func TestIncludeExcludeFiltering(t *testing.T) {
	tr, err := NewTracker([]string{"src/**"}, []string{"src/vendor/**"})
	if err != nil {
		t.Fatal(err)
	}
	tr.Hit("src/a.go", 1)
	tr.Hit("src/vendor/b.go", 1)
	tr.Hit("other/c.go", 1)

	rep := tr.Report()
	if _, ok := rep.Files["src/a.go"]; !ok {
		t.Fatalf("expected src/a.go to be tracked")
	}
	if _, ok := rep.Files["src/vendor/b.go"]; ok {
		t.Fatalf("expected src/vendor/b.go to be excluded")
	}
	if _, ok := rep.Files["other/c.go"]; ok {
		t.Fatalf("expected other/c.go to be excluded (no include match)")
	}
}

func TestCoveragePercentZeroExecutableIsFull(t *testing.T) {
	tr, _ := NewTracker(nil, nil)
	tr.RegisterExecutableLines("empty.go", nil)
	rep := tr.Report()
	fr, ok := rep.Files["empty.go"]
	if !ok {
		t.Fatalf("expected empty.go in report")
	}
	if fr.Coverage != 100 {
		t.Fatalf("expected a file with zero executable lines to report 100%%, got %v", fr.Coverage)
	}
}

func TestHitCountAccumulatesAcrossSaveLoad(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "stats.json")

	tr1, _ := NewTracker(nil, nil)
	tr1.Hit("a.go", 10)
	tr1.Hit("a.go", 10)
	if err := tr1.SaveStats(statsPath); err != nil {
		t.Fatal(err)
	}

	tr2, _ := NewTracker(nil, nil)
	if err := tr2.LoadStats(statsPath); err != nil {
		t.Fatal(err)
	}
	tr2.Hit("a.go", 10)
	if got := tr2.HitCount("a.go", 10); got != 3 {
		t.Fatalf("expected merged hit count 3, got %d", got)
	}
}

func TestThresholdCheck(t *testing.T) {
	tr, _ := NewTracker(nil, nil)
	tr.RegisterExecutableLines("a.go", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	for _, ln := range []int{1, 2, 3, 4, 5} {
		tr.Hit("a.go", ln)
	}
	rep := tr.Report()
	if err := rep.CheckThreshold(60); err == nil {
		t.Fatalf("expected threshold 60 to fail at 50%% coverage")
	}
	if err := rep.CheckThreshold(40); err != nil {
		t.Fatalf("expected threshold 40 to pass at 50%% coverage: %v", err)
	}
}

func TestCoverageAccumulationAcrossTwoFiles(t *testing.T) {
	tr, _ := NewTracker([]string{"src/**"}, []string{"src/vendor/**"})
	for _, f := range []string{"src/a.go", "src/b.go"} {
		tr.RegisterExecutableLines(f, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
		for _, ln := range []int{1, 2, 3, 4, 5} {
			tr.Hit(f, ln)
		}
	}
	rep := tr.Report()
	if rep.CoveredLines != 10 || rep.NotCoveredLines != 10 {
		t.Fatalf("expected 10 covered / 10 not covered, got %d/%d", rep.CoveredLines, rep.NotCoveredLines)
	}
	if rep.Coverage != 50 {
		t.Fatalf("expected 50%% overall coverage, got %v", rep.Coverage)
	}
}
