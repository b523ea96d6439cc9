// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parallel

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

// scriptFor builds a shell command that prints a bracketed
// WireResult for file, with ok controlling pass/fail and exit code.
func scriptFor(file string, ok bool) *exec.Cmd {
	status := "pass"
	success := "true"
	exitCode := "0"
	if !ok {
		status = "fail"
		success = "false"
		exitCode = "1"
	}
	payload := fmt.Sprintf(`{"file":%q,"success":%s,"results":[{"path":"root > test","name":"test","status":%q,"duration_s":0.01}]}`, file, success, status)
	script := fmt.Sprintf("echo %s; echo '%s'; echo %s; exit %s", BeginMarker, payload, EndMarker, exitCode)
	return exec.Command("sh", "-c", script)
}

func TestScanBracketedParsesLastBlock(t *testing.T) {
	out := strings.Join([]string{
		"some noise",
		BeginMarker,
		`{"file":"a.lua","success":false,"results":[]}`,
		EndMarker,
		"more noise",
		BeginMarker,
		`{"file":"a.lua","success":true,"results":[]}`,
		EndMarker,
	}, "\n")

	wr, err := ScanBracketed(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ScanBracketed: %v", err)
	}
	if !wr.Success {
		t.Fatalf("expected the last block (success=true) to win, got %+v", wr)
	}
}

func TestScanBracketedNoBlockIsError(t *testing.T) {
	if _, err := ScanBracketed(strings.NewReader("no markers here")); err == nil {
		t.Fatalf("expected an error when no bracketed block is present")
	}
}

func TestRunTwoWorkersAggregate(t *testing.T) {
	files := []string{"one_test.lua", "two_test.lua"}
	build := func(_ context.Context, file string) *exec.Cmd {
		return scriptFor(file, file == "one_test.lua")
	}

	results := Run(context.Background(), files, 2, build)
	if len(results) != 2 {
		t.Fatalf("expected 2 worker results, got %d", len(results))
	}

	agg := Combine(results)
	if agg.Success {
		t.Fatalf("expected overall failure since one worker reported success=false")
	}
	if agg.Total != 2 {
		t.Fatalf("expected 2 total tests aggregated, got %d", agg.Total)
	}
	if agg.Passed != 1 || agg.Failed != 1 {
		t.Fatalf("expected 1 passed and 1 failed, got passed=%d failed=%d", agg.Passed, agg.Failed)
	}
}

func TestWorkerResultSuccessRequiresZeroExit(t *testing.T) {
	wr := &WorkerResult{Wire: &WireResult{Success: true}, ExitErr: fmt.Errorf("exit status 1")}
	if wr.Success() {
		t.Fatalf("a nonzero exit must fail Success() even if the wire payload claims success")
	}
}
