// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config is firmo's minimal configuration boundary: a
// key/default registry that core packages read from and an
// orchestrator populates from a YAML file plus command-line
// overrides. It deliberately does not reimplement the teacher's full
// schema-validated bundle config (out of scope per SPEC_FULL.md §1) —
// it is grounded only on the default-injection shape of
// config.ParseConfig's validateAndInjectDefaults step.
package config

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/greggh/firmo/ferror"
)

// Store is the external-collaborator boundary core packages depend
// on: get a value (falling back to a registered default), register a
// default, and subscribe to changes.
type Store interface {
	Get(key string) (any, bool)
	RegisterDefault(key string, value any)
	Subscribe(key string, fn func(value any))
}

// memStore is the minimal in-memory Store implementation used for
// wiring and tests.
type memStore struct {
	mu        sync.RWMutex
	values    map[string]any
	defaults  map[string]any
	observers map[string][]func(any)
}

// New constructs an empty Store.
func New() Store {
	return &memStore{
		values:    map[string]any{},
		defaults:  map[string]any{},
		observers: map[string][]func(any){},
	}
}

func (s *memStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v, true
	}
	v, ok := s.defaults[key]
	return v, ok
}

func (s *memStore) RegisterDefault(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[key] = value
}

func (s *memStore) Subscribe(key string, fn func(value any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers[key] = append(s.observers[key], fn)
}

// Set installs an explicit value for key, overriding any default, and
// notifies subscribers. Set is not part of the Store interface since
// most callers (core packages) should only ever read; only the
// orchestrator's config-loading step needs to write.
func Set(s Store, key string, value any) {
	ms, ok := s.(*memStore)
	if !ok {
		return
	}
	ms.mu.Lock()
	ms.values[key] = value
	observers := append([]func(any){}, ms.observers[key]...)
	ms.mu.Unlock()

	for _, fn := range observers {
		fn(value)
	}
}

// LoadFile parses a YAML config file into s, calling Set for every
// top-level key. A missing file is not an error (spec §6's config
// file is optional); a malformed one is.
func LoadFile(s Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ferror.Wrap(ferror.IO, err, "config: failed to read %s", path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return ferror.Wrap(ferror.Validation, err, "config: failed to parse %s", path)
	}
	for k, v := range raw {
		Set(s, k, v)
	}
	return nil
}

// Save writes s's current non-default values to path as YAML,
// overwriting any existing file atomically (temp-file-then-rename, the
// same discipline the coverage and report packages use for durable
// writes).
func Save(s Store, path string) error {
	ms, ok := s.(*memStore)
	if !ok {
		return ferror.New(ferror.Internal, "config: Save requires the in-memory Store implementation")
	}

	ms.mu.RLock()
	snapshot := make(map[string]any, len(ms.values))
	for k, v := range ms.values {
		snapshot[k] = v
	}
	ms.mu.RUnlock()

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return ferror.Wrap(ferror.Internal, err, "config: failed to marshal config")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ferror.Wrap(ferror.IO, err, "config: failed to write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferror.Wrap(ferror.IO, err, "config: failed to rename %s into place", tmp)
	}
	return nil
}
