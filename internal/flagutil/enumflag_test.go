// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package flagutil

import "testing"

func TestEnumFlagRejectsUnknownValue(t *testing.T) {
	f := NewEnumFlag("text", []string{"text", "json", "dot"})
	if err := f.Set("xml"); err == nil {
		t.Fatalf("expected an error for an unrecognized value")
	}
	if f.String() != "text" {
		t.Fatalf("expected value to remain at default after rejected Set, got %q", f.String())
	}
}

func TestEnumFlagAcceptsKnownValue(t *testing.T) {
	f := NewEnumFlag("text", []string{"text", "json", "dot"})
	if err := f.Set("json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if f.String() != "json" {
		t.Fatalf("expected 'json', got %q", f.String())
	}
}
