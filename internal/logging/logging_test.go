// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestExpectedErrorDowngradesToDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetLevel("debug")

	expected := l.WithExpectedError(true)
	expected.Error("boom")

	out := buf.String()
	if !strings.Contains(out, "[EXPECTED]") {
		t.Fatalf("expected [EXPECTED] tag in output, got %q", out)
	}
	if strings.Contains(out, "level=error") {
		t.Fatalf("expected downgrade to debug level, got %q", out)
	}
}

func TestUnexpectedErrorStaysAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.Error("boom")

	if !strings.Contains(buf.String(), "level=error") {
		t.Fatalf("expected error level in output, got %q", buf.String())
	}
}
