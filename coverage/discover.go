// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package coverage

import (
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/greggh/firmo/ferror"
)

// DiscoverExecutableLines parses a Go source file and returns the line
// numbers of every statement, the Go-native replacement for the
// teacher's ast.WalkRules/ast.WalkExprs traversal over its own Rego
// AST. Pass the result to RegisterExecutableLines so a file's report
// can distinguish "never executed" from "not executable".
func DiscoverExecutableLines(file string) ([]int, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, file, nil, 0)
	if err != nil {
		return nil, ferror.Wrap(ferror.IO, err, "coverage: failed to parse %s", file)
	}

	seen := map[int]struct{}{}
	ast.Inspect(f, func(n ast.Node) bool {
		switch n.(type) {
		case ast.Stmt:
			if n != nil {
				seen[fset.Position(n.Pos()).Line] = struct{}{}
			}
		}
		return true
	})

	lines := make([]int, 0, len(seen))
	for ln := range seen {
		lines = append(lines, ln)
	}
	return lines, nil
}
