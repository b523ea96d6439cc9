package assert

import (
	"errors"
	"math"
	"testing"

	"github.com/greggh/firmo/ferror"
)

func TestEqualBasic(t *testing.T) {
	if err := That(4).To().Equal(4); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	if err := That(4).To().Equal(5); err == nil {
		t.Fatalf("expected failure")
	}
}

func TestNegationTogglesTwiceIsIdentity(t *testing.T) {
	err1 := That(false).ToNot().BeTruthy()
	err2 := That(false).ToNot().ToNot().BeTruthy()
	if err1 != nil {
		t.Fatalf("expected to_not.be_truthy on false to pass, got %v", err1)
	}
	if err2 == nil {
		t.Fatalf("expected to_not.to_not.be_truthy on false to fail (double negation == identity)")
	}
}

func TestNaNNeverEqualsNaN(t *testing.T) {
	if err := That(math.NaN()).To().Equal(math.NaN()); err == nil {
		t.Fatalf("expected NaN != NaN to fail Equal")
	}
}

func TestDeepEqualReflexiveAndSymmetric(t *testing.T) {
	a := map[string]any{"x": 1, "y": []any{1, 2, 3}}
	if err := That(a).To().DeepEqual(a); err != nil {
		t.Fatalf("expected reflexivity, got %v", err)
	}
	b := map[string]any{"y": []any{1, 2, 3}, "x": 1}
	if err := That(a).To().DeepEqual(b); err != nil {
		t.Fatalf("expected key-order-independent equality, got %v", err)
	}
	if err := That(b).To().DeepEqual(a); err != nil {
		t.Fatalf("expected symmetry, got %v", err)
	}
}

func TestDeepEqualHandlesCycles(t *testing.T) {
	type node struct {
		Name string
		Next *node
	}
	a := &node{Name: "a"}
	a.Next = a
	b := &node{Name: "a"}
	b.Next = b

	if err := That(a).To().DeepEqual(b); err != nil {
		t.Fatalf("expected cyclic structures with equal shape to compare equal, got %v", err)
	}
}

func TestExistAndExpectNilFails(t *testing.T) {
	if err := That(nil).To().Exist(); err == nil {
		t.Fatalf("expected expect(nil).to.exist() to fail")
	}
	if err := That(false).ToNot().BeTruthy(); err != nil {
		t.Fatalf("expected expect(false).to_not.be_truthy() to pass, got %v", err)
	}
}

func TestMatchVsMatchRegexAreDistinct(t *testing.T) {
	if err := That("firmo.rego").To().Match("*.rego"); err != nil {
		t.Fatalf("expected glob pattern to match, got %v", err)
	}
	if err := That("firmo.rego").To().MatchRegex(`^firmo\.rego$`); err != nil {
		t.Fatalf("expected regex to match, got %v", err)
	}
	if err := That("firmo.rego").To().MatchRegex(`^\*\.rego$`); err == nil {
		t.Fatalf("expected literal glob pattern to not be a valid regex match")
	}
}

func TestHaveLength(t *testing.T) {
	if err := That([]int{1, 2, 3}).To().HaveLength(3); err != nil {
		t.Fatalf("expected length 3, got %v", err)
	}
}

func TestHavePropertyWithValue(t *testing.T) {
	m := map[string]any{"status": "ok"}
	if err := That(m).To().HaveProperty("status", "ok"); err != nil {
		t.Fatalf("expected property match, got %v", err)
	}
	if err := That(m).To().HaveProperty("missing"); err == nil {
		t.Fatalf("expected missing property to fail")
	}
}

func TestChangeIncreaseDecrease(t *testing.T) {
	counter := 0
	inc := func() { counter++ }
	if err := That(inc).To().Increase(func() any { return counter }); err != nil {
		t.Fatalf("expected counter to increase, got %v", err)
	}

	counter = 5
	dec := func() { counter-- }
	if err := That(dec).To().Decrease(func() any { return counter }); err != nil {
		t.Fatalf("expected counter to decrease, got %v", err)
	}
}

func TestThrowErrorMatching(t *testing.T) {
	boom := func() error { return errors.New("boom: disk full") }
	if err := That(boom).Throw().ErrorMatching("disk full"); err != nil {
		t.Fatalf("expected throw to match pattern, got %v", err)
	}
	ok := func() error { return nil }
	if err := That(ok).Throw().Error(); err == nil {
		t.Fatalf("expected non-throwing subject to fail Throw().Error()")
	}
}

func TestMatcherRecorderSeesEveryCall(t *testing.T) {
	var seen []string
	rec := RecorderFunc(func(matcher string, category Category) {
		seen = append(seen, matcher)
	})
	_ = That(4, WithRecorder(rec)).To().Equal(4)
	_ = That(4, WithRecorder(rec)).To().BeGreaterThan(1)
	if len(seen) != 2 || seen[0] != "equal" || seen[1] != "be_greater_than" {
		t.Fatalf("expected recorder to see both matchers, got %v", seen)
	}
}

func TestAssertionErrorCategoryIsAssertion(t *testing.T) {
	err := That(1).To().Equal(2)
	if !ferror.Is(err, ferror.Assertion) {
		t.Fatalf("expected ASSERTION category error, got %v", err)
	}
}
