// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/greggh/firmo/registry"
	"github.com/greggh/firmo/report"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("-- placeholder test file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverFindsRegisteredFilesMatchingPattern(t *testing.T) {
	dir := t.TempDir()
	mathPath := writeFile(t, dir, "math_test.lua")
	writeFile(t, dir, "README.md")

	RegisterFile(mathPath, func() error { return nil })
	defer delete(FileLoaders, mathPath)

	found, err := Discover([]string{dir}, "*_test.lua")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(found) != 1 || found[0] != mathPath {
		t.Fatalf("expected exactly [%s], got %v", mathPath, found)
	}
}

func TestRunOnceAggregatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a_test.lua")
	bPath := writeFile(t, dir, "b_test.lua")

	RegisterFile(aPath, func() error {
		reg := registry.Default
		reg.Describe("math", func() {
			reg.It("adds", func(*registry.Context) error { return nil })
		})
		return nil
	})
	RegisterFile(bPath, func() error {
		reg := registry.Default
		reg.Describe("strings", func() {
			reg.It("concats", func(*registry.Context) error { return nil })
		})
		return nil
	})
	defer delete(FileLoaders, aPath)
	defer delete(FileLoaders, bPath)

	opts := Options{Paths: []string{dir}, Pattern: "*_test.lua"}
	res, err := RunOnce(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("expected 2 file results, got %d", len(res.Files))
	}
	if !res.Success {
		t.Fatalf("expected overall success, got failure: %+v", res.Files)
	}

	total := 0
	for _, fr := range res.Files {
		p, _, _, _, _ := fr.Counts()
		total += p
	}
	if total != 2 {
		t.Fatalf("expected 2 total passes across files, got %d", total)
	}
}

func TestRunOnceWithCoverageAndQualityProducesAllReportTypes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c_test.lua")
	RegisterFile(path, func() error {
		reg := registry.Default
		reg.Describe("edge cases", func() {
			reg.It("handles nil input", func(*registry.Context) error { return nil })
		})
		return nil
	})
	defer delete(FileLoaders, path)

	opts := Options{Paths: []string{dir}, Pattern: "*_test.lua", Coverage: true, Quality: true}
	res, err := RunOnce(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Reports[report.TypeResults] == nil {
		t.Fatalf("expected a results report")
	}
	if res.Reports[report.TypeCoverage] == nil {
		t.Fatalf("expected a coverage report when Coverage is enabled")
	}
	if res.Quality == nil {
		t.Fatalf("expected a quality report when Quality is enabled")
	}
}

func TestRunOnceInvalidCoveragePatternIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "d_test.lua")
	RegisterFile(path, func() error {
		reg := registry.Default
		reg.Describe("suite", func() {
			reg.It("passes", func(*registry.Context) error { return nil })
		})
		return nil
	})
	defer delete(FileLoaders, path)

	opts := Options{Paths: []string{dir}, Pattern: "*_test.lua", Coverage: true, CoverageInclude: []string{"["}}
	res, err := RunOnce(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunOnce: expected an invalid coverage pattern to be non-fatal, got error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected overall success despite coverage init failure, got: %+v", res.Files)
	}
	if res.Reports[report.TypeCoverage] != nil {
		t.Fatalf("expected no coverage report when tracker init failed")
	}
}
