// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package runner

import (
	"errors"
	"testing"
	"time"

	"github.com/greggh/firmo/mock"
	"github.com/greggh/firmo/registry"
)

func TestRunFileBasicPassAndFail(t *testing.T) {
	r := New()
	fr := r.RunFile("basic_test.go", func() error {
		registry.Describe("math", func() {
			It("adds", func(tc *T) error { return nil })
			It("subtracts", func(tc *T) error { return errors.New("wrong") })
		})
		return nil
	})

	if fr.LoadErr != nil {
		t.Fatalf("unexpected load error: %v", fr.LoadErr)
	}
	if len(fr.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fr.Results))
	}
	if fr.Results[0].Status != Pass {
		t.Fatalf("expected first test to pass, got %s", fr.Results[0].Status)
	}
	if fr.Results[1].Status != Fail {
		t.Fatalf("expected second test to fail, got %s", fr.Results[1].Status)
	}
	if fr.Success() {
		t.Fatalf("expected file to be unsuccessful given a failing test")
	}
}

func TestRunFileFocusAndSkip(t *testing.T) {
	r := New()
	fr := r.RunFile("focus_test.go", func() error {
		registry.Describe("suite", func() {
			FIt("focused", func(tc *T) error { return nil })
			It("not focused", func(tc *T) error { return nil })
			registry.XIt("skipped", "not ready yet")
		})
		return nil
	})

	if len(fr.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(fr.Results))
	}
	byName := map[string]*Result{}
	for _, res := range fr.Results {
		byName[res.Name] = res
	}
	if byName["focused"].Status != Pass {
		t.Fatalf("expected focused test to run and pass")
	}
	if byName["not focused"].Status != Skip || byName["not focused"].SkipReason != "focus" {
		t.Fatalf("expected non-focused test skipped due to focus, got %+v", byName["not focused"])
	}
	if byName["skipped"].Status != Skip || byName["skipped"].SkipReason != "not ready yet" {
		t.Fatalf("expected explicitly skipped test to carry its reason, got %+v", byName["skipped"])
	}
}

func TestRunFileHookOrderingAndMockRestore(t *testing.T) {
	r := New()
	var order []string
	var deps struct {
		Fetch func() string
	}
	deps.Fetch = func() string { return "real" }

	fr := r.RunFile("hooks_test.go", func() error {
		registry.Describe("outer", func() {
			registry.Before(func(*registry.Context) error { order = append(order, "outer-before"); return nil })
			registry.After(func(*registry.Context) error { order = append(order, "outer-after"); return nil })
			registry.Describe("inner", func() {
				registry.Before(func(*registry.Context) error { order = append(order, "inner-before"); return nil })
				registry.After(func(*registry.Context) error { order = append(order, "inner-after"); return nil })
				It("leaf", func(tc *T) error {
					order = append(order, "body")
					m, err := mock.New(&deps)
					if err != nil {
						return err
					}
					if _, err := m.When("Fetch"); err != nil {
						return err
					}
					return nil
				})
			})
		})
		return nil
	})

	if fr.Results[0].Status != Pass {
		t.Fatalf("expected leaf test to pass, got %s: %v", fr.Results[0].Status, fr.Results[0].Err)
	}
	want := []string{"outer-before", "inner-before", "body", "inner-after", "outer-after"}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
	if mock.ActiveCount() != 0 {
		t.Fatalf("expected mock restored automatically after the test, got %d active", mock.ActiveCount())
	}
	if v := deps.Fetch(); v != "real" {
		t.Fatalf("expected Fetch restored to its original implementation, got %q", v)
	}
}

func TestRunFileExpectErrorSemantics(t *testing.T) {
	r := New()
	fr := r.RunFile("expect_err_test.go", func() error {
		registry.Describe("errors", func() {
			It("raises as expected", func(tc *T) error { return errors.New("boom") }, registry.WithExpectError())
			It("fails to raise", func(tc *T) error { return nil }, registry.WithExpectError())
		})
		return nil
	})

	byName := map[string]*Result{}
	for _, res := range fr.Results {
		byName[res.Name] = res
	}
	if byName["raises as expected"].Status != Pass {
		t.Fatalf("expected expect_error test that raised to pass, got %s", byName["raises as expected"].Status)
	}
	if byName["fails to raise"].Status != Fail {
		t.Fatalf("expected expect_error test that did not raise to fail, got %s", byName["fails to raise"].Status)
	}
}

func TestRunFileAsyncTimeout(t *testing.T) {
	r := New()
	fr := r.RunFile("async_test.go", func() error {
		registry.Describe("async", func() {
			It("never resolves", func(tc *T) error {
				return tc.Async.WaitUntil(func() bool { return false }, 5000, 10)
			}, registry.WithAsync(), registry.WithTimeout(50))
		})
		return nil
	})

	res := fr.Results[0]
	if res.Status != Fail {
		t.Fatalf("expected async test exceeding its timeout to fail, got %s", res.Status)
	}
}

func TestRunFileStructuralErrorFailsDescendants(t *testing.T) {
	r := New()
	fr := r.RunFile("panicky_test.go", func() error {
		registry.Describe("broken", func() {
			registry.It("never registers", func(*registry.Context) error { return nil })
			panic("setup exploded")
		})
		return nil
	})
	if len(fr.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(fr.Results))
	}
	if fr.Results[0].Status != Error {
		t.Fatalf("expected descendant of a panicking describe to report Error, got %s", fr.Results[0].Status)
	}
}

func TestRunFileNilBodyIsPending(t *testing.T) {
	r := New()
	fr := r.RunFile("pending_test.go", func() error {
		registry.Describe("todo", func() {
			It("not written yet", nil)
		})
		return nil
	})

	if len(fr.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(fr.Results))
	}
	if fr.Results[0].Status != Pending {
		t.Fatalf("expected nil-body test to report Pending, got %s", fr.Results[0].Status)
	}
	if !fr.Success() {
		t.Fatalf("expected a pending test to not fail the file")
	}
	_, _, _, _, pending := fr.Counts()
	if pending != 1 {
		t.Fatalf("expected Counts() to report 1 pending, got %d", pending)
	}
}

func TestRunFileLoadErrorShortCircuits(t *testing.T) {
	r := New()
	fr := r.RunFile("bad_test.go", func() error { return errors.New("syntax error") })
	if fr.LoadErr == nil {
		t.Fatalf("expected a load error")
	}
	if fr.Success() {
		t.Fatalf("expected file with a load error to be unsuccessful")
	}
}

func TestRunnerDefaultTimeoutApplies(t *testing.T) {
	r := &Runner{Timeout: 20 * time.Millisecond}
	fr := r.RunFile("slow_test.go", func() error {
		registry.Describe("slow", func() {
			It("sleeps past default timeout", func(tc *T) error {
				time.Sleep(100 * time.Millisecond)
				return nil
			})
		})
		return nil
	})
	if fr.Results[0].Status != Fail {
		t.Fatalf("expected default timeout to fail a slow sync test, got %s", fr.Results[0].Status)
	}
}
