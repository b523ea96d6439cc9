// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package assert

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// deepEqualWithDiff reports structural equality (cycle-safe, via
// cmp.Equal) and, on mismatch, a rendered diff: first-mismatch offset for
// strings, added/removed/changed paths for composites.
func deepEqualWithDiff(a, b any) (matched bool, diff string) {
	matched = safeCmpEqual(a, b)
	if matched {
		return true, ""
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return false, stringDiff(as, bs)
		}
	}
	return false, structuralDiff(a, b)
}

// safeCmpEqual wraps cmp.Equal, falling back to reflect.DeepEqual for
// values cmp refuses to compare (e.g. structs with unexported fields and
// no exported accessors), so a non-comparable value never panics a test.
func safeCmpEqual(a, b any) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = reflect.DeepEqual(a, b)
		}
	}()
	return cmp.Equal(a, b)
}

// stringDiff renders the offset of the first differing rune, grounded on
// diffmatchpatch's Myers diff: the offset is the length of the common
// prefix reported by the first non-equal diff chunk.
func stringDiff(a, b string) string {
	if a == b {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	offset := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			offset += len([]rune(d.Text))
			continue
		}
		break
	}
	return fmt.Sprintf("first mismatch at offset %d", offset)
}

// structuralDiff reports added/removed/changed key paths between two
// composite values (maps or slices of the same shape), one per line.
func structuralDiff(a, b any) string {
	var lines []string
	walkDiff("", a, b, &lines)
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func walkDiff(path string, a, b any, lines *[]string) {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if !av.IsValid() || !bv.IsValid() || av.Kind() != bv.Kind() {
		if !safeCmpEqual(a, b) {
			*lines = append(*lines, fmt.Sprintf("changed %s: %v -> %v", pathOrRoot(path), a, b))
		}
		return
	}
	switch av.Kind() {
	case reflect.Map:
		seen := map[string]bool{}
		for _, k := range av.MapKeys() {
			key := fmt.Sprintf("%v", k.Interface())
			seen[key] = true
			sub := fmt.Sprintf("%s.%s", path, key)
			bval := bv.MapIndex(k)
			if !bval.IsValid() {
				*lines = append(*lines, fmt.Sprintf("removed %s", pathOrRoot(sub)))
				continue
			}
			walkDiff(sub, av.MapIndex(k).Interface(), bval.Interface(), lines)
		}
		for _, k := range bv.MapKeys() {
			key := fmt.Sprintf("%v", k.Interface())
			if seen[key] {
				continue
			}
			*lines = append(*lines, fmt.Sprintf("added %s", pathOrRoot(fmt.Sprintf("%s.%s", path, key))))
		}
	case reflect.Slice, reflect.Array:
		n := av.Len()
		if bv.Len() > n {
			n = bv.Len()
		}
		for i := 0; i < n; i++ {
			sub := fmt.Sprintf("%s[%d]", path, i)
			switch {
			case i >= av.Len():
				*lines = append(*lines, fmt.Sprintf("added %s", sub))
			case i >= bv.Len():
				*lines = append(*lines, fmt.Sprintf("removed %s", sub))
			default:
				walkDiff(sub, av.Index(i).Interface(), bv.Index(i).Interface(), lines)
			}
		}
	default:
		if !safeCmpEqual(a, b) {
			*lines = append(*lines, fmt.Sprintf("changed %s: %v -> %v", pathOrRoot(path), a, b))
		}
	}
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return strings.TrimPrefix(path, ".")
}
