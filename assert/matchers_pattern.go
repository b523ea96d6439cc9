// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package assert

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/gobwas/glob"
)

// globCache memoizes compiled patterns, mirroring the teacher's own
// topdown/regex.go glob cache discipline.
var (
	globCacheMu sync.Mutex
	globCache   = map[string]glob.Glob{}
)

func compileGlob(pattern string) (glob.Glob, error) {
	globCacheMu.Lock()
	defer globCacheMu.Unlock()
	if g, ok := globCache[pattern]; ok {
		return g, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	globCache[pattern] = g
	return g, nil
}

// Match matches the value (which must be a string) against the host
// string-pattern dialect. Firmo's Go port uses glob-style patterns here,
// keeping Match distinct from MatchRegex's full regular expressions, per
// spec §9 ("keep match ... distinct from match_regex").
func (a *Assertion) Match(pattern string) error {
	s, ok := a.value.(string)
	if !ok {
		return a.result("match", CategoryPattern, false, pattern, "")
	}
	g, err := compileGlob(pattern)
	if err != nil {
		return a.result("match", CategoryPattern, false, pattern, fmt.Sprintf("invalid pattern: %v", err))
	}
	return a.result("match", CategoryPattern, g.Match(s), pattern, "")
}

// regexCache memoizes compiled regular expressions.
var (
	regexCacheMu sync.Mutex
	regexCache   = map[string]*regexp.Regexp{}
)

func compileRegex(pattern string) (*regexp.Regexp, error) {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	if re, ok := regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache[pattern] = re
	return re, nil
}

// MatchRegex matches the value (which must be a string) against a full
// regular expression, distinct from the glob-style Match.
func (a *Assertion) MatchRegex(pattern string) error {
	s, ok := a.value.(string)
	if !ok {
		return a.result("match_regex", CategoryPattern, false, pattern, "")
	}
	re, err := compileRegex(pattern)
	if err != nil {
		return a.result("match_regex", CategoryPattern, false, pattern, fmt.Sprintf("invalid pattern: %v", err))
	}
	return a.result("match_regex", CategoryPattern, re.MatchString(s), pattern, "")
}

// StartWith matches string prefixes; a non-string value never matches.
func (a *Assertion) StartWith(prefix string) error {
	s, ok := a.value.(string)
	if !ok {
		return a.result("start_with", CategoryPattern, false, prefix, "")
	}
	matched := len(s) >= len(prefix) && s[:len(prefix)] == prefix
	return a.result("start_with", CategoryPattern, matched, prefix, "")
}
