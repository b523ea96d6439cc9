// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFallsBackToDefault(t *testing.T) {
	s := New()
	s.RegisterDefault("quality.level", 3)

	v, ok := s.Get("quality.level")
	if !ok || v != 3 {
		t.Fatalf("expected default 3, got %v, %v", v, ok)
	}

	Set(s, "quality.level", 5)
	v, ok = s.Get("quality.level")
	if !ok || v != 5 {
		t.Fatalf("expected overridden 5, got %v, %v", v, ok)
	}
}

func TestSubscribeNotifiesOnSet(t *testing.T) {
	s := New()
	var seen any
	s.Subscribe("coverage.threshold", func(v any) { seen = v })
	Set(s, "coverage.threshold", 80)
	if seen != 80 {
		t.Fatalf("expected subscriber to observe 80, got %v", seen)
	}
}

func TestLoadFileMissingIsNotError(t *testing.T) {
	s := New()
	if err := LoadFile(s, filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("missing config file should not be an error, got %v", err)
	}
}

func TestLoadFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "firmo.yaml")
	if err := os.WriteFile(path, []byte("quality:\n  level: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New()
	if err := LoadFile(s, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	v, ok := s.Get("quality")
	if !ok {
		t.Fatalf("expected 'quality' key to be set")
	}
	m, ok := v.(map[string]any)
	if !ok || m["level"] != 4 {
		t.Fatalf("expected nested level 4, got %#v", v)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "firmo.yaml")

	s := New()
	Set(s, "watch.debounce_ms", 500)
	if err := Save(s, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2 := New()
	if err := LoadFile(s2, path); err != nil {
		t.Fatalf("LoadFile after Save: %v", err)
	}
	v, ok := s2.Get("watch.debounce_ms")
	if !ok || v != 500 {
		t.Fatalf("expected reloaded 500, got %v, %v", v, ok)
	}
}
