// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package registry builds the nested suite/test tree as user code
// evaluates Describe/It (and their focus/skip variants), and iterates the
// resulting tree in deterministic, registration-preserving order.
package registry

import (
	"fmt"
	"sort"
)

// Kind discriminates a suite node from a leaf test node.
type Kind int

const (
	// KindSuite is a describe-style container block.
	KindSuite Kind = iota
	// KindTest is an it-style leaf block.
	KindTest
)

func (k Kind) String() string {
	if k == KindSuite {
		return "suite"
	}
	return "test"
}

// Hook is a before/after callback. Context carries the registry's current
// test identity so hooks can observe which test they are running for.
type Hook func(*Context) error

// Body is a test leaf's executable payload.
type Body func(*Context) error

// SuiteBody is the function passed to Describe; it registers children by
// calling back into the Registry that is current while it executes.
type SuiteBody func()

// Context is threaded through hook and test bodies. It is intentionally
// minimal here; the runner package attaches richer per-test state (the
// active async.Task, when the test is async) by embedding *Context into
// its own type and stashing it in Runtime before invoking a test's Body,
// the same escape hatch stdlib context.Context uses for request-scoped
// values.
type Context struct {
	Path    Path
	Test    *Block
	Runtime any
}

// Path is an ordered sequence of suite/test names from root to leaf.
type Path []string

// String renders the path the way test results display it, e.g.
// "math > adds".
func (p Path) String() string {
	out := ""
	for i, name := range p {
		if i > 0 {
			out += " > "
		}
		out += name
	}
	return out
}

// Block is a node in the registry tree. See spec §3 for the invariants
// this type must uphold: children of a suite are ordered by registration;
// before_each runs root-to-leaf, after_each leaf-to-root; tags propagate
// from parent to descendants as a union.
type Block struct {
	Kind       Kind
	Name       string
	Focused    bool
	Skipped    bool
	SkipReason string
	OwnTags    map[string]struct{}
	Async      bool
	TimeoutMS  uint32
	ExpectErr  bool

	Parent   *Block
	Children []*Block

	BeforeEach []Hook
	AfterEach  []Hook
	Body       Body

	// StructuralErr is set when a Describe body panics while being
	// evaluated; the runner then reports every descendant test with
	// status error, carrying this error, per spec §4.2.
	StructuralErr error
}

// Path returns the ordered sequence of names from the tree root to this
// block (exclusive of a synthetic root, if any).
func (b *Block) Path() Path {
	var names []string
	for n := b; n != nil && n.Name != ""; n = n.Parent {
		names = append([]string{n.Name}, names...)
	}
	return names
}

// Tags returns the union of this block's own tags with every ancestor's
// own tags, implementing the parent-to-descendant union invariant.
func (b *Block) Tags() map[string]struct{} {
	out := map[string]struct{}{}
	for n := b; n != nil; n = n.Parent {
		for t := range n.OwnTags {
			out[t] = struct{}{}
		}
	}
	return out
}

// HasTag reports whether tag is present (directly or via ancestor
// propagation) on b.
func (b *Block) HasTag(tag string) bool {
	_, ok := b.Tags()[tag]
	return ok
}

// Option configures a Describe or It registration.
type Option func(*Block)

// WithTags attaches tags directly to the block being registered (in
// addition to whatever the enclosing Tags() call already staged).
func WithTags(tags ...string) Option {
	return func(b *Block) {
		if b.OwnTags == nil {
			b.OwnTags = map[string]struct{}{}
		}
		for _, t := range tags {
			b.OwnTags[t] = struct{}{}
		}
	}
}

// WithTimeout sets a per-test timeout in milliseconds (tests only).
func WithTimeout(ms uint32) Option {
	return func(b *Block) { b.TimeoutMS = ms }
}

// WithExpectError marks a test as expected to error (tests only); see
// spec §4.5 and §7.
func WithExpectError() Option {
	return func(b *Block) { b.ExpectErr = true }
}

// WithAsync marks a test as async, meaning its body runs on the async
// scheduler rather than being called directly.
func WithAsync() Option {
	return func(b *Block) { b.Async = true }
}

// frame is the registry's internal build-time stack entry: the suite
// currently being populated, plus tags staged by a Tags() call that have
// not yet been cleared by that suite popping.
type frame struct {
	block     *Block
	extraTags map[string]struct{}
}

// Registry owns the Block tree exclusively during a build, and is Reset
// between files per spec §3 ("Lifecycle & ownership").
type Registry struct {
	root  *Block
	stack []*frame
}

// New returns an empty Registry, ready for Describe/It calls at the top
// level.
func New() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Reset discards the current tree and starts a fresh empty root suite.
// The runner calls this once per file per spec §4.5 step 1.
func (r *Registry) Reset() {
	r.root = &Block{Kind: KindSuite, Name: ""}
	r.stack = []*frame{{block: r.root}}
}

// Root returns the tree's synthetic top-level suite.
func (r *Registry) Root() *Block {
	return r.root
}

func (r *Registry) current() *frame {
	return r.stack[len(r.stack)-1]
}

func (r *Registry) effectiveExtraTags() map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range r.stack {
		for t := range f.extraTags {
			out[t] = struct{}{}
		}
	}
	return out
}

// Tags stages tags that apply to every child subsequently registered
// within the current suite, until that suite's Describe body returns
// (pops), per spec §4.2.
func (r *Registry) Tags(tags ...string) {
	f := r.current()
	if f.extraTags == nil {
		f.extraTags = map[string]struct{}{}
	}
	for _, t := range tags {
		f.extraTags[t] = struct{}{}
	}
}

// Before registers a before_each hook on the current suite, run in
// registration order ahead of each descendant test.
func (r *Registry) Before(fn Hook) {
	r.current().block.BeforeEach = append(r.current().block.BeforeEach, fn)
}

// After registers an after_each hook on the current suite, run in reverse
// registration order after each descendant test.
func (r *Registry) After(fn Hook) {
	r.current().block.AfterEach = append(r.current().block.AfterEach, fn)
}

// Describe pushes a suite onto the current parent, evaluates body with it
// as current, then pops. A body that panics marks the suite with a
// structural error instead of propagating, per spec §4.2.
func (r *Registry) Describe(name string, body SuiteBody, opts ...Option) {
	suite := &Block{Kind: KindSuite, Name: name, Parent: r.current().block}
	for t := range r.effectiveExtraTags() {
		suite.OwnTags = addTag(suite.OwnTags, t)
	}
	for _, o := range opts {
		o(suite)
	}
	parent := r.current().block
	parent.Children = append(parent.Children, suite)

	r.stack = append(r.stack, &frame{block: suite})
	defer func() {
		if rec := recover(); rec != nil {
			suite.StructuralErr = fmt.Errorf("describe %q panicked: %v", name, rec)
		}
		r.stack = r.stack[:len(r.stack)-1]
	}()
	body()
}

// FDescribe registers a focused suite.
func (r *Registry) FDescribe(name string, body SuiteBody, opts ...Option) {
	r.Describe(name, body, append(opts, func(b *Block) { b.Focused = true })...)
}

// XDescribe registers a skipped suite.
func (r *Registry) XDescribe(name, reason string, body SuiteBody, opts ...Option) {
	r.Describe(name, body, append(opts, func(b *Block) { b.Skipped = true; b.SkipReason = reason })...)
}

// It registers a test leaf under the current suite.
func (r *Registry) It(name string, body Body, opts ...Option) *Block {
	test := &Block{Kind: KindTest, Name: name, Parent: r.current().block, Body: body}
	for t := range r.effectiveExtraTags() {
		test.OwnTags = addTag(test.OwnTags, t)
	}
	for _, o := range opts {
		o(test)
	}
	parent := r.current().block
	parent.Children = append(parent.Children, test)
	return test
}

// FIt registers a focused test.
func (r *Registry) FIt(name string, body Body, opts ...Option) *Block {
	return r.It(name, body, append(opts, func(b *Block) { b.Focused = true })...)
}

// XIt registers a skipped test; it never runs its body.
func (r *Registry) XIt(name, reason string, opts ...Option) *Block {
	return r.It(name, nil, append(opts, func(b *Block) { b.Skipped = true; b.SkipReason = reason })...)
}

func addTag(set map[string]struct{}, tag string) map[string]struct{} {
	if set == nil {
		set = map[string]struct{}{}
	}
	set[tag] = struct{}{}
	return set
}

// Walk visits every block in the tree, depth-first pre-order, in
// registration order.
func (r *Registry) Walk(visit func(*Block)) {
	var walk func(*Block)
	walk = func(b *Block) {
		visit(b)
		for _, c := range b.Children {
			walk(c)
		}
	}
	walk(r.root)
}

// Tests returns every KindTest leaf in the tree, depth-first pre-order.
func (r *Registry) Tests() []*Block {
	var out []*Block
	r.Walk(func(b *Block) {
		if b.Kind == KindTest {
			out = append(out, b)
		}
	})
	return out
}

// anyFocused reports whether any block anywhere in the tree is focused.
func (r *Registry) anyFocused() bool {
	found := false
	r.Walk(func(b *Block) {
		if b.Focused {
			found = true
		}
	})
	return found
}

// isSkipped reports whether b or any ancestor is marked skipped.
func isSkipped(b *Block) (bool, string) {
	for n := b; n != nil; n = n.Parent {
		if n.Skipped {
			return true, n.SkipReason
		}
	}
	return false, ""
}

// isFocused reports whether b or any ancestor is marked focused.
func isFocused(b *Block) bool {
	for n := b; n != nil; n = n.Parent {
		if n.Focused {
			return true
		}
	}
	return false
}

// Filter narrows a Runnable set further: Tags, when non-empty, requires
// at least one of the listed tags (OR within Tags, AND with NameMatches);
// NameMatches, when set, is called with the full path string and must
// return true.
type Filter struct {
	Tags        []string
	NameMatches func(pathString string) bool
}

// RunnablePlan is one test's resolved disposition after focus/skip/filter
// resolution.
type RunnablePlan struct {
	Test       *Block
	Run        bool
	SkipReason string
}

// Plan resolves the focus/skip/filter semantics from spec §4.2 into a
// per-test run/skip decision, preserving registration order.
func (r *Registry) Plan(filter Filter) []RunnablePlan {
	hasFocus := r.anyFocused()
	var plans []RunnablePlan
	for _, t := range r.Tests() {
		skipped, reason := isSkipped(t)
		plan := RunnablePlan{Test: t}
		switch {
		case skipped:
			plan.Run = false
			if reason == "" {
				reason = "skip"
			}
			plan.SkipReason = reason
		case hasFocus && !isFocused(t):
			plan.Run = false
			plan.SkipReason = "focus"
		case len(filter.Tags) > 0 && !hasAnyTag(t, filter.Tags):
			plan.Run = false
			plan.SkipReason = "tag-filter"
		case filter.NameMatches != nil && !filter.NameMatches(t.Path().String()):
			plan.Run = false
			plan.SkipReason = "name-filter"
		default:
			plan.Run = true
		}
		plans = append(plans, plan)
	}
	return plans
}

func hasAnyTag(b *Block, tags []string) bool {
	effective := b.Tags()
	for _, t := range tags {
		if _, ok := effective[t]; ok {
			return true
		}
	}
	return false
}

// Hooks returns the ordered before_each chain (root to leaf) and the
// ordered after_each chain (leaf to root, each suite's hooks in reverse
// registration order) applicable to test, in the order they run, per spec
// §4.2 "Iteration order".
func Hooks(test *Block) (before, after []Hook) {
	var chainUp []*Block
	for n := test.Parent; n != nil; n = n.Parent {
		chainUp = append(chainUp, n)
	}
	// chainUp is leaf-parent .. root; reverse for root->leaf before_each.
	for i := len(chainUp) - 1; i >= 0; i-- {
		before = append(before, chainUp[i].BeforeEach...)
	}
	for i := 0; i < len(chainUp); i++ {
		hooks := chainUp[i].AfterEach
		for j := len(hooks) - 1; j >= 0; j-- {
			after = append(after, hooks[j])
		}
	}
	return before, after
}

// SortedTagSet renders a block's effective tags in sorted order, useful
// for deterministic reporting output.
func SortedTagSet(b *Block) []string {
	tags := b.Tags()
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
