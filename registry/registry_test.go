package registry

import (
	"testing"
)

func TestBasicOrderingScenario(t *testing.T) {
	r := New()
	var order []string
	r.Describe("math", func() {
		r.It("adds", func(*Context) error { order = append(order, "adds"); return nil })
		r.It("muls", func(*Context) error { order = append(order, "muls"); return nil })
	})

	tests := r.Tests()
	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}
	if tests[0].Name != "adds" || tests[1].Name != "muls" {
		t.Fatalf("expected registration order adds,muls; got %s,%s", tests[0].Name, tests[1].Name)
	}
	plans := r.Plan(Filter{})
	for _, p := range plans {
		if !p.Run {
			t.Fatalf("expected %s to be runnable", p.Test.Name)
		}
		_ = p.Test.Body(&Context{})
	}
	if len(order) != 2 || order[0] != "adds" || order[1] != "muls" {
		t.Fatalf("unexpected execution order: %v", order)
	}
}

func TestFocusAndSkipScenario(t *testing.T) {
	r := New()
	r.Describe("A", func() {
		r.It("a1", func(*Context) error { return nil })
		r.FIt("a2", func(*Context) error { return nil })
		r.XIt("a3", "todo")
	})
	r.Describe("B", func() {
		r.It("b1", func(*Context) error { return nil })
	})

	plans := r.Plan(Filter{})
	var passNames []string
	var skipReasons = map[string]string{}
	for _, p := range plans {
		if p.Run {
			passNames = append(passNames, p.Test.Name)
		} else {
			skipReasons[p.Test.Name] = p.SkipReason
		}
	}
	if len(passNames) != 1 || passNames[0] != "a2" {
		t.Fatalf("expected only a2 runnable, got %v", passNames)
	}
	if skipReasons["a1"] != "focus" {
		t.Fatalf("expected a1 skipped for focus, got %q", skipReasons["a1"])
	}
	if skipReasons["a3"] != "todo" {
		t.Fatalf("expected a3 skipped for explicit skip, got %q", skipReasons["a3"])
	}
	if skipReasons["b1"] != "focus" {
		t.Fatalf("expected b1 skipped for focus, got %q", skipReasons["b1"])
	}
}

func TestTagPropagationAndScoping(t *testing.T) {
	r := New()
	r.Describe("outer", func() {
		r.Tags("slow")
		r.It("inside-tagged-scope", func(*Context) error { return nil })
		r.Describe("inner", func() {
			r.It("inherits-slow", func(*Context) error { return nil })
		})
	})
	r.Describe("sibling", func() {
		r.It("untagged", func(*Context) error { return nil })
	})

	tests := r.Tests()
	byName := map[string]*Block{}
	for _, b := range tests {
		byName[b.Name] = b
	}
	if !byName["inside-tagged-scope"].HasTag("slow") {
		t.Fatalf("expected inside-tagged-scope to carry slow tag")
	}
	if !byName["inherits-slow"].HasTag("slow") {
		t.Fatalf("expected nested describe to inherit slow tag")
	}
	if byName["untagged"].HasTag("slow") {
		t.Fatalf("expected sibling describe to not see slow tag (scope ends at pop)")
	}
}

func TestHookOrdering(t *testing.T) {
	r := New()
	var log []string
	r.Describe("outer", func() {
		r.Before(func(*Context) error { log = append(log, "outer-before"); return nil })
		r.After(func(*Context) error { log = append(log, "outer-after"); return nil })
		r.Describe("inner", func() {
			r.Before(func(*Context) error { log = append(log, "inner-before"); return nil })
			r.After(func(*Context) error { log = append(log, "inner-after"); return nil })
			r.It("leaf", func(*Context) error { log = append(log, "test"); return nil })
		})
	})

	leaf := r.Tests()[0]
	before, after := Hooks(leaf)
	for _, h := range before {
		_ = h(&Context{})
	}
	_ = leaf.Body(&Context{})
	for _, h := range after {
		_ = h(&Context{})
	}

	want := []string{"outer-before", "inner-before", "test", "inner-after", "outer-after"}
	if len(log) != len(want) {
		t.Fatalf("got %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("got %v, want %v", log, want)
		}
	}
}

func TestStructuralErrorOnPanickingDescribe(t *testing.T) {
	r := New()
	r.Describe("bad", func() {
		r.It("leaf", func(*Context) error { return nil })
		panic("boom")
	})
	suite := r.Root().Children[0]
	if suite.StructuralErr == nil {
		t.Fatalf("expected structural error to be recorded")
	}
}
