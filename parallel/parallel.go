// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package parallel implements the cross-process file runner from
// spec §4.9: one OS process per test file, bounded by a worker count,
// with results exchanged over stdout via a pair of exact bracket
// markers. It is the only concurrent execution model in firmo (spec
// §5): everything else is single-threaded cooperative. Grounded on
// the teacher's per-file opaTest invocation model, generalized from
// an in-process call to an os/exec subprocess, and on
// tester.JSONReporter's "serialize results as one JSON blob" as the
// wire format each worker emits.
package parallel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/greggh/firmo/ferror"
	"github.com/greggh/firmo/runner"
)

// BeginMarker and EndMarker bracket the single line of JSON a worker
// emits, exactly as spec §4.9/§6 require.
const (
	BeginMarker = "RESULTS_JSON_BEGIN"
	EndMarker   = "RESULTS_JSON_END"
)

// WireResult is the JSON shape a worker prints between the markers:
// a direct serialization of runner.FileResult, flattened to
// JSON-friendly field names.
type WireResult struct {
	File    string       `json:"file"`
	Success bool         `json:"success"`
	Results []WireTest   `json:"results"`
}

// WireTest is one test's JSON-friendly projection of runner.Result.
type WireTest struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationS  float64 `json:"duration_s"`
	Error      string `json:"error,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// Encode renders fr as the WireResult JSON payload a worker prints
// between BeginMarker and EndMarker.
func Encode(fr *runner.FileResult) ([]byte, error) {
	wr := WireResult{File: fr.File, Success: fr.Success()}
	for _, r := range fr.Results {
		wt := WireTest{Path: r.Path.String(), Name: r.Name, Status: string(r.Status), DurationS: r.Duration.Seconds(), SkipReason: r.SkipReason}
		if r.Err != nil {
			wt.Error = r.Err.Error()
		}
		wr.Results = append(wr.Results, wt)
	}
	return json.Marshal(wr)
}

// EmitBracketed writes fr to w as WireResult JSON, bracketed by the
// two markers on lines of their own, the exact protocol a parent
// process scans for.
func EmitBracketed(w io.Writer, fr *runner.FileResult) error {
	data, err := Encode(fr)
	if err != nil {
		return ferror.Wrap(ferror.Internal, err, "parallel: failed to encode worker result")
	}
	fmt.Fprintln(w, BeginMarker)
	fmt.Fprintln(w, string(data))
	fmt.Fprintln(w, EndMarker)
	return nil
}

// ScanBracketed scans r for the last well-formed
// RESULTS_JSON_BEGIN/END bracketed block and decodes it. Prose lines
// outside the brackets are discarded; if more than one block is
// present (a worker retried internally), the last one wins, per spec
// §4.9.
func ScanBracketed(r io.Reader) (*WireResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var last *WireResult
	var collecting bool
	var buf bytes.Buffer

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == BeginMarker:
			collecting = true
			buf.Reset()
		case line == EndMarker:
			if collecting {
				var wr WireResult
				if err := json.Unmarshal(buf.Bytes(), &wr); err == nil {
					last = &wr
				}
			}
			collecting = false
		case collecting:
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	if last == nil {
		return nil, ferror.New(ferror.Execution, "parallel: no well-formed results block found in worker output")
	}
	return last, nil
}

// WorkerResult is one worker's outcome as observed by the parent: its
// parsed WireResult (nil if parsing failed), its exit status, and any
// process-launch error.
type WorkerResult struct {
	File    string
	Wire    *WireResult
	Stdout  []byte
	Stderr  []byte
	ExitErr error
}

// Success reports whether this worker's result counts toward an
// overall pass: its process must have exited zero AND its parsed
// result (if any) must itself report success, per spec §4.9
// "requires the worker exit code to be 0".
func (wr *WorkerResult) Success() bool {
	if wr.ExitErr != nil {
		return false
	}
	return wr.Wire != nil && wr.Wire.Success
}

// CommandBuilder produces the *exec.Cmd used to run one file's
// worker. The binary is expected to support an "emit JSON" flag per
// spec §4.10 step 5 ("invokes the orchestrator for a single file with
// an emit JSON flag").
type CommandBuilder func(ctx context.Context, file string) *exec.Cmd

// Run spawns one worker per file, bounded by workers concurrent
// processes, and returns every WorkerResult in the same order as
// files.
func Run(ctx context.Context, files []string, workers int, build CommandBuilder) []*WorkerResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*WorkerResult, len(files))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, file string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = runOne(ctx, file, build)
		}(i, file)
	}
	wg.Wait()
	return results
}

func runOne(ctx context.Context, file string, build CommandBuilder) *WorkerResult {
	cmd := build(ctx, file)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	wr := &WorkerResult{File: file, Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitErr: runErr}
	if parsed, err := ScanBracketed(bytes.NewReader(stdout.Bytes())); err == nil {
		wr.Wire = parsed
	}
	return wr
}

// Aggregate combines every WorkerResult into an overall
// success/failure and overall pass/fail/skip counts, as if the files
// had run in-process (spec §4.9 "Aggregated results combine all
// FileResults as if run in-process").
type Aggregate struct {
	Success bool
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Workers []*WorkerResult
}

// Combine folds worker results into an Aggregate.
func Combine(workers []*WorkerResult) Aggregate {
	agg := Aggregate{Success: true, Workers: workers}
	for _, w := range workers {
		if !w.Success() {
			agg.Success = false
		}
		if w.Wire == nil {
			continue
		}
		for _, t := range w.Wire.Results {
			agg.Total++
			switch t.Status {
			case "pass":
				agg.Passed++
			case "fail", "error":
				agg.Failed++
			case "skip":
				agg.Skipped++
			}
		}
	}
	return agg
}
